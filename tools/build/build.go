// Command build cross-compiles mmm for every release target, stamping the
// version, the help URL and the API keys into internal/environment.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

const (
	executableName     = "mmm"
	environmentPackage = "github.com/meza/mod-reconciler/internal/environment"
)

// stamp binds a build input to the package variable it overrides.
type stamp struct {
	envVar   string
	symbol   string
	required bool
}

var stamps = []stamp{
	{envVar: "MODRINTH_API_KEY", symbol: "modrinthAPIKeyDefault", required: true},
	{envVar: "CURSEFORGE_API_KEY", symbol: "curseforgeAPIKeyDefault", required: true},
	{envVar: "POSTHOG_API_KEY", symbol: "posthogAPIKeyDefault", required: true},
	{envVar: "MMM_VERSION", symbol: "appVersion"},
	{envVar: "MMM_HELP_URL", symbol: "helpURL"},
}

type target struct {
	goos   string
	goarch string
}

var targets = []target{
	{goos: "darwin", goarch: "amd64"},
	{goos: "darwin", goarch: "arm64"},
	{goos: "linux", goarch: "amd64"},
	{goos: "linux", goarch: "arm64"},
	{goos: "windows", goarch: "amd64"},
	{goos: "windows", goarch: "arm64"},
}

func (t target) String() string {
	return t.goos + "/" + t.goarch
}

func (t target) executable() string {
	if t.goos == "windows" {
		return executableName + ".exe"
	}
	return executableName
}

type runner func(*exec.Cmd) error

func runAttached(command *exec.Cmd) error {
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr
	return command.Run()
}

type builder struct {
	root    string
	environ []string
	run     runner
	logf    func(format string, args ...any)
}

var (
	getwd = os.Getwd
	exit  = os.Exit
)

func main() {
	exit(runMain())
}

func runMain() int {
	wd, err := getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "build: cannot determine working directory:", err)
		return 1
	}
	root, err := findModuleRoot(wd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "build:", err)
		return 1
	}

	b := &builder{
		root:    root,
		environ: os.Environ(),
		run:     runAttached,
		logf:    log.New(os.Stdout, "build: ", 0).Printf,
	}
	if err := b.buildAll(); err != nil {
		fmt.Fprintln(os.Stderr, "build:", err)
		return 1
	}
	return 0
}

func (b *builder) buildAll() error {
	dotenv, err := readDotenv(filepath.Join(b.root, ".env"))
	if err != nil {
		return fmt.Errorf("read .env: %w", err)
	}

	env := mergeEnv(b.environ, dotenv)
	if missing := missingStamps(env); len(missing) > 0 {
		return fmt.Errorf("missing build inputs: %s (set them in the environment or in .env)", strings.Join(missing, ", "))
	}
	ldflags := ldflagsFor(env)

	for _, t := range targets {
		b.logf("building %s", t)
		if err := b.build(t, env, ldflags); err != nil {
			return err
		}
	}
	b.logf("done")
	return nil
}

func (b *builder) build(t target, env map[string]string, ldflags string) error {
	outDir := filepath.Join(b.root, "build", t.goos, t.goarch)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}

	targetEnv := make(map[string]string, len(env)+3)
	for key, value := range env {
		targetEnv[key] = value
	}
	targetEnv["GOOS"] = t.goos
	targetEnv["GOARCH"] = t.goarch
	targetEnv["CGO_ENABLED"] = "0"

	command := exec.Command("go", "build", "-trimpath", "-ldflags", ldflags, "-o", filepath.Join(outDir, t.executable()), ".")
	command.Dir = b.root
	command.Env = envList(targetEnv)
	if err := b.run(command); err != nil {
		return fmt.Errorf("build %s: %w", t, err)
	}
	return nil
}

// readDotenv treats a missing file as empty.
func readDotenv(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return godotenv.Parse(bytes.NewReader(data))
}

func findModuleRoot(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no go.mod above the working directory")
		}
		dir = parent
	}
}

// mergeEnv lets the process environment win over .env for stamped inputs.
func mergeEnv(environ []string, dotenv map[string]string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, entry := range environ {
		if key, value, ok := strings.Cut(entry, "="); ok {
			env[key] = value
		}
	}
	for _, s := range stamps {
		if _, set := env[s.envVar]; set {
			continue
		}
		if value, ok := dotenv[s.envVar]; ok {
			env[s.envVar] = value
		}
	}
	return env
}

func missingStamps(env map[string]string) []string {
	var missing []string
	for _, s := range stamps {
		if s.required && strings.TrimSpace(env[s.envVar]) == "" {
			missing = append(missing, s.envVar)
		}
	}
	return missing
}

// ldflagsFor skips optional inputs that are unset so the placeholders stay.
func ldflagsFor(env map[string]string) string {
	flags := []string{"-s", "-w"}
	for _, s := range stamps {
		value := strings.TrimSpace(env[s.envVar])
		if value == "" {
			continue
		}
		flags = append(flags, fmt.Sprintf("-X %s.%s=%s", environmentPackage, s.symbol, value))
	}
	return strings.Join(flags, " ")
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	list := make([]string, 0, len(keys))
	for _, key := range keys {
		list = append(list, key+"="+env[key])
	}
	return list
}
