package provider

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/mapyr/mcp-hangar/internal/rpcclient"
)

// launch spawns the child process for cfg.Mode and returns a connected
// rpcclient.Client. Container modes shell out to the configured runtime
// (docker/podman, or an auto-detected one) rather than linking a
// container-engine SDK; the downstream protocol is stdio JSON-RPC
// regardless of what spawns the process.
func launch(ctx context.Context, cfg Config, logger *slog.Logger) (*rpcclient.Client, error) {
	switch cfg.Mode {
	case ModeSubprocess, "":
		return launchSubprocess(ctx, cfg, logger)
	case ModeDocker:
		return launchContainer(ctx, cfg, "docker", logger)
	case ModePodman:
		return launchContainer(ctx, cfg, "podman", logger)
	case ModeContainer:
		runtime := detectContainerRuntime()
		return launchContainer(ctx, cfg, runtime, logger)
	case ModeRemote:
		return nil, fmt.Errorf("provider: remote mode requires a network RPC client, which is out of scope for the stdio-only core (endpoint=%s)", cfg.Endpoint)
	default:
		return nil, fmt.Errorf("provider: unknown mode %q", cfg.Mode)
	}
}

func launchSubprocess(ctx context.Context, cfg Config, logger *slog.Logger) (*rpcclient.Client, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("provider: subprocess mode requires a command")
	}
	env := mergeEnv(cfg.Env)
	return rpcclient.Start(ctx, cfg.Command[0], cfg.Command[1:], env, logger)
}

func launchContainer(ctx context.Context, cfg Config, runtime string, logger *slog.Logger) (*rpcclient.Client, error) {
	if cfg.Image == "" && cfg.Build == nil {
		return nil, fmt.Errorf("provider: container mode requires image or build.dockerfile")
	}
	image := cfg.Image
	if cfg.Build != nil && cfg.Build.Tag != "" {
		image = cfg.Build.Tag
	}

	args := []string{"run", "--rm", "-i"}
	if cfg.Network != "" {
		args = append(args, "--network", cfg.Network)
	}
	if cfg.ReadOnly {
		args = append(args, "--read-only")
	}
	if cfg.Resources.Memory != "" {
		args = append(args, "--memory", cfg.Resources.Memory)
	}
	if cfg.Resources.CPU != "" {
		args = append(args, "--cpus", cfg.Resources.CPU)
	}
	if cfg.User != "" {
		args = append(args, "--user", resolveUser(cfg.User))
	}
	for _, v := range cfg.Volumes {
		args = append(args, "-v", v)
	}
	for k, v := range cfg.Env {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args, image)
	args = append(args, cfg.Command...)

	return rpcclient.Start(ctx, runtime, args, nil, logger)
}

func detectContainerRuntime() string {
	if _, err := exec.LookPath("podman"); err == nil {
		return "podman"
	}
	return "docker"
}

// resolveUser turns the literal "current" into the invoker's uid:gid when
// the container is launched, otherwise passes the value through unchanged.
func resolveUser(user string) string {
	if user != "current" {
		return user
	}
	return fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
}

func mergeEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	env := os.Environ()
	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
