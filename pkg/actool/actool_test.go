package actool

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const childEnv = "ACTOOL_TEST_CHILD"

// childCommands are the fake tool behaviours a test can ask for.
var childCommands = map[string]func() int{
	"version-26": func() int {
		fmt.Println("/* com.apple.actool.version */")
		fmt.Println("bundle-version: 24126")
		fmt.Println("short-bundle-version: 26.0")
		return 0
	},
	"version-16": func() int {
		fmt.Println("/* com.apple.actool.version */")
		fmt.Println("bundle-version: 22155")
		fmt.Println("short-bundle-version: 16.0")
		return 0
	},
	"assetutil-info": func() int {
		if len(os.Args) != 4 || os.Args[1] != "assetutil" || os.Args[2] != "--info" {
			fmt.Fprintf(os.Stderr, "unexpected arguments %q\n", os.Args[1:])
			return 64
		}
		fmt.Println(`[{"AssetStorageVersion":"Xcode 26.0","Platform":"macosx"},`)
		fmt.Println(`{"AssetType":"Color","Name":"AccentColor"},`)
		fmt.Println(`{"AssetType":"Icon Image","Name":"Glass","RenditionName":"Icon.icon"}]`)
		return 0
	},
	"garbage": func() int {
		fmt.Println("hello")
		return 0
	},
	"exit-status": func() int {
		fmt.Fprintln(os.Stderr, "xcrun: error: unable to find utility \"actool\"")
		return 72
	},
}

func TestMain(m *testing.M) {
	if name := os.Getenv(childEnv); name != "" {
		f, ok := childCommands[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown child command %q\n", name)
			os.Exit(2)
		}
		os.Exit(f())
	}
	os.Exit(m.Run())
}

func childCmd(t *testing.T, name string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(), childEnv+"="+name)
	return cmd
}

func TestVersion(t *testing.T) {
	v, err := Version(context.Background(), &Options{
		Logger:  hclog.L(),
		BaseCmd: childCmd(t, "version-26"),
	})
	require.NoError(t, err)
	assert.Equal(t, "26.0", v)

	v, err = Version(context.Background(), &Options{BaseCmd: childCmd(t, "version-16")})
	require.NoError(t, err)
	assert.Equal(t, "16.0", v)
}

func TestVersion_exitStatus(t *testing.T) {
	v, err := Version(context.Background(), &Options{BaseCmd: childCmd(t, "exit-status")})
	require.ErrorContains(t, err, "unable to find utility")
	assert.Empty(t, v)
}

func TestVersion_unparsable(t *testing.T) {
	_, err := Version(context.Background(), &Options{BaseCmd: childCmd(t, "garbage")})
	require.Error(t, err)
}

func TestVersion_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Version(ctx, &Options{BaseCmd: childCmd(t, "version-26")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAppIconName(t *testing.T) {
	name, err := AppIconName(context.Background(), &Options{
		Logger:  hclog.L(),
		BaseCmd: childCmd(t, "assetutil-info"),
	}, "/tmp/Assets.car")
	require.NoError(t, err)
	assert.Equal(t, "Glass", name)

	_, err = AppIconName(context.Background(), &Options{BaseCmd: childCmd(t, "garbage")}, "/tmp/Assets.car")
	require.ErrorContains(t, err, "/tmp/Assets.car")

	_, err = AppIconName(context.Background(), &Options{BaseCmd: childCmd(t, "exit-status")}, "/tmp/Assets.car")
	require.ErrorContains(t, err, "error running assetutil")
}

func TestParseAppIconName(t *testing.T) {
	t.Parallel()

	name, err := ParseAppIconName([]byte(`[{"AssetType":"Image","Name":"Logo"},{"AssetType":"Icon Image","Name":"AppIcon"}]`))
	require.NoError(t, err)
	assert.Equal(t, "AppIcon", name)

	_, err = ParseAppIconName([]byte(`[{"AssetType":"Image","Name":"Logo"}]`))
	require.ErrorContains(t, err, "no app icon")
	_, err = ParseAppIconName([]byte("not json"))
	require.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	v, err := ParseVersion([]byte("bundle-version: 1\n  short-bundle-version :  15.4 \n"))
	require.NoError(t, err)
	assert.Equal(t, "15.4", v)

	_, err = ParseVersion([]byte("short-bundle-version:\n"))
	require.Error(t, err)
	_, err = ParseVersion(nil)
	require.Error(t, err)
}

func TestSupportsTinted(t *testing.T) {
	t.Parallel()

	for version, want := range map[string]bool{
		"16.0":   false,
		"25.9.1": false,
		"26.0":   true,
		"26":     true,
		"27.1":   true,
	} {
		got, err := SupportsTinted(version)
		require.NoError(t, err, version)
		assert.Equal(t, want, got, version)
	}
	_, err := SupportsTinted("sixteen")
	require.Error(t, err)
}
