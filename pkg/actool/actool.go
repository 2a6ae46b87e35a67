// Package actool probes the installed Xcode asset catalog tools. Tinted
// icon variants are only honoured by toolchains from macOS 26 on, so the
// probe lets the build warn when the local toolchain is older. assetutil
// reads the app icon name out of a compiled Assets.car.
package actool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/hashicorp/go-hclog"
)

// TintedMinVersion is the first actool version that knows tinted icons.
const TintedMinVersion = "26.0"

// Options configure the probe.
type Options struct {
	// Logger is the logger to use. If this is nil then no logging will be
	// done.
	Logger hclog.Logger

	// BaseCmd is the base command for executing actool through xcrun. This
	// is used for tests to overwrite where the binary is. If this isn't
	// specified then we use `xcrun actool` from the PATH.
	BaseCmd *exec.Cmd
}

// Version runs `actool --version` and returns the short bundle version it
// reports, for example "16.0".
func Version(ctx context.Context, opts *Options) (string, error) {
	logger := opts.logger()
	out, err := run(ctx, opts, "actool", "--version", "--output-format", "human-readable-text")
	if err != nil {
		return "", err
	}
	version, err := ParseVersion(out)
	if err != nil {
		return "", err
	}
	logger.Debug("actool version", "version", version)
	return version, nil
}

// AppIconName runs `assetutil --info` on a compiled asset catalog and returns
// the name of its app icon, the value CFBundleIconName must carry.
func AppIconName(ctx context.Context, opts *Options, catalogPath string) (string, error) {
	out, err := run(ctx, opts, "assetutil", "--info", catalogPath)
	if err != nil {
		return "", err
	}
	name, err := ParseAppIconName(out)
	if err != nil {
		return "", fmt.Errorf("%s: %w", catalogPath, err)
	}
	opts.logger().Debug("asset catalog app icon", "path", catalogPath, "name", name)
	return name, nil
}

func (opts *Options) logger() hclog.Logger {
	if opts == nil || opts.Logger == nil {
		return hclog.NewNullLogger()
	}
	return opts.Logger
}

// run executes an Xcode tool through xcrun and returns its stdout.
func run(ctx context.Context, opts *Options, tool string, args ...string) ([]byte, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.logger()

	var cmd *exec.Cmd
	if opts.BaseCmd != nil {
		cmd = exec.CommandContext(ctx, opts.BaseCmd.Path)
		cmd.Env = opts.BaseCmd.Env
		cmd.Dir = opts.BaseCmd.Dir
	} else {
		path, err := exec.LookPath("xcrun")
		if err != nil {
			return nil, err
		}
		cmd = exec.CommandContext(ctx, path)
	}
	cmd.Args = append([]string{filepath.Base(cmd.Path), tool}, args...)

	var out, combined bytes.Buffer
	cmd.Stdout = io.MultiWriter(&out, &combined)
	cmd.Stderr = &combined

	logger.Debug("running "+tool,
		"command_path", cmd.Path,
		"command_args", cmd.Args,
	)

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("error running %s:\n\n%s", tool, combined.String())
	}
	return out.Bytes(), nil
}

// ParseVersion extracts short-bundle-version from actool's human readable
// output.
func ParseVersion(out []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if ok && strings.TrimSpace(key) == "short-bundle-version" {
			if v := strings.TrimSpace(value); v != "" {
				return v, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no short-bundle-version in actool output")
}

// assetInfo is one record of `assetutil --info` output.
type assetInfo struct {
	AssetType string `json:"AssetType"`
	Name      string `json:"Name"`
}

// ParseAppIconName finds the app icon in `assetutil --info` JSON output.
func ParseAppIconName(out []byte) (string, error) {
	var infos []assetInfo
	if err := json.Unmarshal(out, &infos); err != nil {
		return "", fmt.Errorf("parse assetutil output: %w", err)
	}
	for _, info := range infos {
		if info.AssetType == "Icon Image" && info.Name != "" {
			return info.Name, nil
		}
	}
	return "", fmt.Errorf("no app icon in asset catalog")
}

// SupportsTinted reports whether an actool version compiles tinted icon
// variants.
func SupportsTinted(version string) (bool, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("parse actool version %q: %w", version, err)
	}
	return !v.LessThan(semver.MustParse(TintedMinVersion)), nil
}
