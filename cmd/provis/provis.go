package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/pflag"
	"provis.dev/provis/pkg/cmd"
	"provis.dev/provis/pkg/config"
	"provis.dev/provis/pkg/directive"
	"provis.dev/provis/pkg/fetch"
	"provis.dev/provis/pkg/installer"
	"provis.dev/provis/pkg/matrix"
	"provis.dev/provis/pkg/nvhook"
	"provis.dev/provis/pkg/pyenv"
	"provis.dev/provis/pkg/pyproject"
	"provis.dev/provis/pkg/sumfile"
	"provis.dev/provis/pkg/winstamp"
)

const version = "0.1.0"

func main() {
	root := pflag.NewFlagSet("provis", pflag.ContinueOnError)
	root.SetInterspersed(false)

	logLevel := root.StringP("log-level", "l", "info", "trace, debug, info, warn or error")

	if err := root.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}

		log.Fatal(err)
	}

	hclog.SetDefault(hclog.New(&hclog.LoggerOptions{
		Name:  "provis",
		Level: hclog.LevelFromString(*logLevel),
	}))

	c := cli.NewCLI("provis", version)
	c.Args = root.Args()
	c.Commands = map[string]cli.CommandFactory{
		"install": func() (cli.Command, error) {
			return cmd.New(
				"install",
				"Install build/test requirements on the detected environment",
				installF,
			), nil
		},
		"env": func() (cli.Command, error) {
			return cmd.New(
				"env",
				"Show the detected python environment",
				envF,
			), nil
		},
		"matrix": func() (cli.Command, error) {
			return cmd.New(
				"matrix",
				"List the samples of a test matrix",
				matrixF,
			), nil
		},
		"stamp": func() (cli.Command, error) {
			return cmd.New(
				"stamp",
				"Write a version resource into a windows executable",
				stampF,
			), nil
		},
		"nvidia-patch": func() (cli.Command, error) {
			return cmd.New(
				"nvidia-patch",
				"Patch the installed nvidia package for frozen applications",
				nvidiaF,
			), nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	os.Exit(exitStatus)
}

func detect(ctx context.Context, cfg *config.Config, python string) (*pyenv.Context, error) {
	if python == "" {
		python = cfg.Python
	}

	return pyenv.Detect(ctx, python)
}

func installF(ctx context.Context, opts struct {
	Sample        string   `short:"s" long:"sample" description:"install the requirements of this test sample"`
	Matrix        string   `long:"matrix" description:"test matrix path, relative to the project root" default:"ci/build-test.json"`
	Requirements  []string `short:"r" long:"requirement" description:"extra requirement line (repeatable)"`
	ExtraIndexURL []string `long:"extra-index-url" description:"extra package index (repeatable)"`
	FindLinks     []string `long:"find-links" description:"extra wheel location (repeatable)"`
	Basic         bool     `long:"basic-requirements" description:"stop after the pyproject requirements"`
	Prebuilt      string   `long:"prebuilt" description:"install a prebuilt name@version from the packages index"`
	Python        string   `long:"python" description:"target interpreter"`
	Upgrade       bool     `long:"upgrade" description:"pass --upgrade to every pip install"`
}) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	env, err := detect(ctx, cfg, opts.Python)
	if err != nil {
		return err
	}

	L := hclog.L().Named("install")

	root, err := pyproject.FindRoot(".")
	if err != nil {
		return err
	}

	project, err := pyproject.Load(filepath.Join(root, "pyproject.toml"))
	if err != nil {
		return err
	}

	basic := project.BasicRequirements(env.PythonVersion, env.PlatformTag, cfg.RequirementExtras)

	// environment housekeeping before anything else
	if env.PlatformTag == "mingw" {
		basic = append([]string{"ca-certificates"}, basic...)
	}

	if env.UV == "" {
		basic = append([]string{"pip --upgrade"}, basic...)
	}

	extraIndex := opts.ExtraIndexURL

	// pre-release interpreters pull from the packages index, where
	// wheels for preview pythons show up before pypi
	if !env.FinalRelease && cfg.PackagesIndexURL != "" {
		extraIndex = append(extraIndex, cfg.PackagesIndexURL)
	}

	inst := installer.New(env, cfg, nil)
	inst.SetLogger(L)

	var installed []string

	pkgs, err := inst.Install(ctx, basic, installer.Options{
		ExtraIndexURL: extraIndex,
		Upgrade:       cfg.PipUpgrade || opts.Upgrade,
	})
	if err != nil {
		L.Warn("some requirements were skipped", "error", err)
	}

	installed = append(installed, pkgs...)

	if opts.Prebuilt != "" {
		name, ver, ok := strings.Cut(opts.Prebuilt, "@")
		if !ok {
			return fmt.Errorf("--prebuilt wants name@version, got %q", opts.Prebuilt)
		}

		f := &fetch.Fetcher{}
		f.SetLogger(L)

		// payload checksums live next to the matrix when the project
		// publishes them
		if sums, err := os.Open(filepath.Join(root, filepath.Dir(opts.Matrix), "build-test.sums")); err == nil {
			var sf sumfile.Sumfile
			if err := sf.Load(sums); err == nil {
				f.Sums = &sf
			}
			sums.Close()
		}

		pkgs, err := inst.InstallPrebuilt(ctx, f, name, ver)
		if err != nil {
			return err
		}

		installed = append(installed, pkgs...)
	}

	if opts.Sample != "" && !opts.Basic {
		m, err := matrix.Load(filepath.Join(root, opts.Matrix))
		if err != nil {
			return err
		}

		entry := m.Lookup(opts.Sample)

		if !directive.SupportedPlatform(entry.PlatformConstraint(), env.PlatformTag) {
			fmt.Printf("Sample %s is not supported on %s\n", opts.Sample, env.PlatformTag)
			return nil
		}

		pkgs, err := inst.Install(ctx, entry.Requirements, installer.Options{
			ExtraIndexURL: append(entry.ExtraIndexURL, opts.ExtraIndexURL...),
			FindLinks:     append(entry.FindLinks, opts.FindLinks...),
			Upgrade:       cfg.PipUpgrade || opts.Upgrade,
		})
		if err != nil {
			L.Warn("some sample requirements were skipped", "error", err)
		}

		installed = append(installed, pkgs...)
	}

	if len(opts.Requirements) > 0 {
		pkgs, err := inst.Install(ctx, opts.Requirements, installer.Options{
			ExtraIndexURL: opts.ExtraIndexURL,
			FindLinks:     opts.FindLinks,
			Upgrade:       cfg.PipUpgrade || opts.Upgrade,
		})
		if err != nil {
			L.Warn("some requirements were skipped", "error", err)
		}

		installed = append(installed, pkgs...)
	}

	if len(installed) > 0 {
		fmt.Println("Requirements installed:", strings.Join(installed, " "))
	}

	return nil
}

func envF(ctx context.Context, opts struct {
	Python string `long:"python" description:"target interpreter"`
	Debug  bool   `long:"debug" description:"dump the full context"`
}) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	env, err := detect(ctx, cfg, opts.Python)
	if err != nil {
		return err
	}

	if opts.Debug {
		spew.Dump(env)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 2, 1, ' ', 0)

	fmt.Fprintf(tw, "backend:\t%s\n", env.Backend())
	fmt.Fprintf(tw, "executable:\t%s\n", env.Executable)
	fmt.Fprintf(tw, "prefix:\t%s\n", env.Prefix)
	fmt.Fprintf(tw, "platform:\t%s (%s)\n", env.Platform, env.PlatformTag)
	fmt.Fprintf(tw, "python:\t%s (final: %v)\n", env.PythonVersion, env.FinalRelease)

	if env.UV != "" {
		fmt.Fprintf(tw, "uv:\t%s\n", env.UV)
	}

	if env.Host != nil {
		fmt.Fprintf(tw, "host:\t%s %s (%s)\n", env.Host.Platform, env.Host.PlatformVersion, env.Host.KernelArch)
	}

	return tw.Flush()
}

func matrixF(ctx context.Context, opts struct {
	Matrix string `long:"matrix" description:"test matrix path" default:"ci/build-test.json"`
	Python string `long:"python" description:"target interpreter"`
}) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	env, err := detect(ctx, cfg, opts.Python)
	if err != nil {
		return err
	}

	root, err := pyproject.FindRoot(".")
	if err != nil {
		return err
	}

	m, err := matrix.Load(filepath.Join(root, opts.Matrix))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 2, 1, ' ', 0)
	fmt.Fprintln(tw, "SAMPLE\tTEST APP\tPLATFORM\tRUNS HERE")

	for _, name := range m.Samples() {
		entry := m.Lookup(name)
		supported := directive.SupportedPlatform(entry.PlatformConstraint(), env.PlatformTag)

		constraint := entry.PlatformConstraint()
		if constraint == "" {
			constraint = "any"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", name, entry.TestApp, constraint, supported)
	}

	return tw.Flush()
}

func stampF(ctx context.Context, opts struct {
	Version     string `long:"version" required:"yes" description:"version to write, padded to 4 parts"`
	Product     string `long:"product" description:"product name"`
	Company     string `long:"company" description:"company name"`
	Description string `long:"description" description:"file description"`
	Copyright   string `long:"copyright" description:"copyright notice"`
	DLL         bool   `long:"dll" description:"target is a dll"`
	Python      string `long:"python" description:"interpreter carrying pywin32"`
	Args        struct {
		Path string `positional-arg-name:"path" required:"yes"`
	} `positional-args:"yes"`
}) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	env, err := detect(ctx, cfg, opts.Python)
	if err != nil {
		return err
	}

	s := &winstamp.Stamper{Python: env.Executable}
	s.SetLogger(hclog.L().Named("stamp"))

	return s.Stamp(ctx, opts.Args.Path, winstamp.Info{
		Version:          opts.Version,
		Product:          opts.Product,
		Company:          opts.Company,
		Description:      opts.Description,
		Copyright:        opts.Copyright,
		OriginalFilename: filepath.Base(opts.Args.Path),
		DLL:              opts.DLL,
	})
}

func nvidiaF(ctx context.Context, opts struct {
	Python string `long:"python" description:"target interpreter"`
}) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	env, err := detect(ctx, cfg, opts.Python)
	if err != nil {
		return err
	}

	h := &nvhook.Hook{Python: env.Executable}
	h.SetLogger(hclog.L().Named("nvidia"))

	return h.Apply(ctx)
}
