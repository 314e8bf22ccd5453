package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/samplore/sbuild/internal/artifact"
	"github.com/samplore/sbuild/internal/config"
	"github.com/samplore/sbuild/internal/dispatch"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/internal/toolchain"
	"github.com/samplore/sbuild/pkgs/buildsys"
)

// BuildOptions holds options for the build command. The flavor and job
// count flags feed the settings loader and are read back from the session.
type BuildOptions struct {
	Clean      bool
	Build      bool
	Run        bool
	Platform   string
	BuildTests bool
	WithMake   bool
	WithCMake  bool
	BuildDir   string
}

func newBuildCmd() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build " + projenv.AppName,
		Long: `Build compiles the application with the native tool of the platform
(make, xcodebuild or MSBuild) or with CMake. Missing native project files
are generated first. Without --clean, --build, --run or --build-tests the
command builds.`,
		Example: `  sbuild build
  sbuild build -c Debug -j8
  sbuild build --clean --build
  sbuild build --build-with-cmake --build-dir /tmp/samplore-build
  sbuild build -r`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringP("config", "c", "", "build configuration, Debug or Release (default: BUILD_CONFIG or Release)")
	cmd.Flags().IntP("jobs", "j", 0, "parallel jobs (default: number of CPUs)")
	cmd.Flags().BoolVar(&opts.Clean, "clean", false, "clean build artifacts")
	cmd.Flags().BoolVarP(&opts.Build, "build", "b", false, "build the project (default when no other action is given)")
	cmd.Flags().BoolVarP(&opts.Run, "run", "r", false, "run the application after building")
	cmd.Flags().StringVarP(&opts.Platform, "platform", "p", "", "target platform: linux, macos or windows (default: host)")
	cmd.Flags().BoolVar(&opts.BuildTests, "build-tests", false, "also build the unit test runner")
	cmd.Flags().BoolVar(&opts.WithMake, "build-with-make", false, "build the Projucer-generated native project (default)")
	cmd.Flags().BoolVar(&opts.WithCMake, "build-with-cmake", false, "build with CMake in an isolated directory")
	cmd.Flags().StringVar(&opts.BuildDir, "build-dir", "", "CMake build directory (requires --build-with-cmake)")
	cmd.MarkFlagsMutuallyExclusive("build-with-make", "build-with-cmake")

	_ = cmd.RegisterFlagCompletionFunc("config", completeConfig)
	_ = cmd.RegisterFlagCompletionFunc("platform", completePlatform)
	return cmd
}

func completeConfig(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{config.Debug.String(), config.Release.String()}, cobra.ShellCompDirectiveNoFileComp
}

func completePlatform(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{platform.Linux.String(), platform.MacOS.String(), platform.Windows.String()}, cobra.ShellCompDirectiveNoFileComp
}

// targetPlatform parses a --platform value, defaulting to the host.
func (s *session) targetPlatform(name string) (platform.Tag, error) {
	if name == "" {
		return s.host, nil
	}
	return platform.Parse(name)
}

// backend resolves --build-with-cmake, then the backend setting.
func (s *session) backend(withCMake bool) (dispatch.Backend, error) {
	if withCMake {
		return dispatch.MetaBuild, nil
	}
	b, err := dispatch.ParseBackend(s.settings.Backend)
	if err != nil {
		return nil, remedy(err, "set backend to projucer or cmake in .sbuild.yaml")
	}
	return b, nil
}

func buildError(err error) error {
	if errors.Is(err, dispatch.ErrBuildDirUnsupported) {
		return remedy(err, "add --build-with-cmake, or drop --build-dir")
	}
	var nf *toolchain.NotFoundError
	if errors.As(err, &nf) {
		return remedy(err, "%s", toolchain.Hint(err))
	}
	var np *buildsys.NotPreparedError
	if errors.As(err, &np) && np.Hint != "" {
		return remedy(err, "%s", np.Hint)
	}
	return err
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	s := sessionFrom(cmd)
	ctx := cmd.Context()
	pr := newPrinter(cmd.OutOrStdout())

	tag, err := s.targetPlatform(opts.Platform)
	if err != nil {
		return err
	}
	pr.Field("Platform", tag.String())
	pr.Field("Project", s.project.Root())
	pr.Println()

	if !opts.Clean && !opts.Build && !opts.Run && !opts.BuildTests {
		opts.Build = true
	}

	b, err := s.backend(opts.WithCMake)
	if err != nil {
		return err
	}
	d := s.dispatcher(cmd)
	req := dispatch.Request{
		Platform: tag,
		Config:   s.settings.BuildConfig,
		Backend:  b,
		Jobs:     s.settings.Jobs,
		BuildDir: opts.BuildDir,
	}

	if opts.Clean {
		pr.Println("Cleaning...")
		if _, err := d.Clean(ctx, tag, req.Backend, req.BuildDir); err != nil {
			pr.Fail("Clean failed!")
			return buildError(err)
		}
		pr.Println()
	}

	if opts.Build || opts.Run {
		pr.Printf("Building %s (%s, %s, %d jobs)...\n", projenv.AppName, req.Config, req.Backend, buildsys.Jobs(req.Jobs))
		res, err := d.Build(ctx, req)
		if err != nil {
			pr.Println()
			pr.Fail("Build failed!")
			return buildError(err)
		}
		pr.Println()
		pr.OK("Build successful!")
		if _, err := os.Stat(res.Artifact); err == nil {
			pr.Field("Output", res.Artifact)
		}
	}

	if opts.BuildTests {
		pr.Println("Building unit tests...")
		res, err := d.BuildTests(ctx, tag, req.Jobs)
		if err != nil {
			pr.Fail("Test build failed!")
			return err
		}
		pr.OK("Tests built: %s", res.Artifact)
	}

	if opts.Run {
		pr.Println()
		cands, err := d.ArtifactCandidates(req)
		if err != nil {
			return buildError(err)
		}
		return launchApp(ctx, cmd, s, cands, req.Config)
	}
	return nil
}

// launchApp runs the first existing artifact with the terminal attached.
// An interrupt while the application runs is a normal way to stop it.
func launchApp(ctx context.Context, cmd *cobra.Command, s *session, candidates []string, cfg config.BuildConfig) error {
	pr := newPrinter(cmd.OutOrStdout())
	path, err := artifact.Resolve(candidates, nil)
	if err != nil {
		return remedy(err, "build it first: sbuild build -c %s", cfg)
	}

	c := buildsys.Cmd{Path: path, Dir: filepath.Dir(path), Interactive: true}
	if s.host == platform.MacOS && artifact.IsBundle(path) {
		c = buildsys.Cmd{Path: "open", Args: []string{path}, Interactive: true}
	}
	pr.Printf("Running: %s\n", path)
	s.log.Info("launching application", "path", path)

	code, err := s.runner(cmd).Run(ctx, c)
	if ctx.Err() != nil {
		pr.Println()
		pr.Println("Application stopped")
		return nil
	}
	return buildsys.Succeeded(projenv.AppName, code, err)
}
