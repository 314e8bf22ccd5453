package internal

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/samplore/sbuild/internal/artifact"
	"github.com/samplore/sbuild/internal/config"
	"github.com/samplore/sbuild/internal/dispatch"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/release"
)

// PackageOptions holds options for the package command.
type PackageOptions struct {
	WithCMake bool
	BuildDir  string
}

func newPackageCmd() *cobra.Command {
	opts := &PackageOptions{}

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Package the Release build for distribution",
		Long: `Package archives the Release build into dist/ as a tar.gz on Linux and a
zip on macOS and Windows, versioned from ` + projenv.DescriptorName + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPackage(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.WithCMake, "build-with-cmake", false, "package the CMake build")
	cmd.Flags().StringVar(&opts.BuildDir, "build-dir", "", "CMake build directory (requires --build-with-cmake)")
	return cmd
}

func runPackage(cmd *cobra.Command, opts *PackageOptions) error {
	s := sessionFrom(cmd)
	pr := newPrinter(cmd.OutOrStdout())
	pr.Header(projenv.AppName + " Release Packager")

	data, err := os.ReadFile(s.project.Descriptor())
	if err != nil {
		return err
	}
	version, err := release.Version(data)
	if err != nil {
		return remedy(err, "set version=\"X.Y.Z\" on the JUCERPROJECT element of %s", projenv.DescriptorName)
	}
	pr.Field("Version", version)
	pr.Field("Platform", s.host.DisplayName())
	pr.Println()

	b, err := s.backend(opts.WithCMake)
	if err != nil {
		return err
	}
	req := dispatch.Request{
		Platform: s.host,
		Config:   config.Release,
		Backend:  b,
		BuildDir: opts.BuildDir,
	}
	cands, err := s.dispatcher(cmd).ArtifactCandidates(req)
	if err != nil {
		return buildError(err)
	}
	bin, err := artifact.Resolve(cands, nil)
	if err != nil {
		return remedy(err, "build the release first: sbuild build -c Release")
	}

	pk := release.Package{
		Tag:      s.host,
		Version:  version,
		Artifact: bin,
		DistDir:  s.project.DistDir(),
		Icon:     filepath.Join(s.project.Root(), "Reference", "logo.PNG"),
	}
	archive, err := pk.Build()
	if err != nil {
		return err
	}
	pr.OK("Created %s", archive)
	pr.Println()

	rel, err := filepath.Rel(s.project.Root(), archive)
	if err != nil {
		rel = archive
	}
	pr.Println("Upload to GitHub:")
	pr.Printf("  %s\n", release.UploadHint(version, rel))
	return nil
}
