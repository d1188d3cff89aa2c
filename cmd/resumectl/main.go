// Package main provides resumectl, an operator CLI over stored resume records.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"resume-builder/internal/bootstrap"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/storage/kv"
)

var rootCmd = &cobra.Command{
	Use:          "resumectl",
	Short:        "Inspect and manage stored resumes",
	Long:         "resumectl reads and edits the records, theme and draft kept for one identity namespace in the configured storage backend.",
	SilenceUsage: true,
}

var (
	flagBackend   string
	flagNamespace string
	flagGuest     string
	flagUser      string
)

// openBackend is replaced in tests.
var openBackend = func(ctx context.Context, backend string) (kv.Store, func(), error) {
	cfg := config.Load()
	if backend != "" {
		cfg.StorageBackend = backend
	}
	store, _, closeFn, err := bootstrap.BuildStorage(ctx, cfg, db.DefaultCLIOptions())
	if err != nil {
		return nil, nil, err
	}
	return store, closeFn, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Storage backend: memory, local, postgres, s3 or valkey (defaults to STORAGE_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&flagNamespace, "namespace", "", "Full namespace, e.g. guest:abc or user:123")
	rootCmd.PersistentFlags().StringVar(&flagGuest, "guest", "", "Guest id; shorthand for --namespace guest:<id>")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "User subject; shorthand for --namespace user:<sub>")
}

func namespace() (string, error) {
	set := 0
	ns := strings.TrimSpace(flagNamespace)
	if ns != "" {
		set++
	}
	if g := strings.TrimSpace(flagGuest); g != "" {
		set++
		ns = "guest:" + g
	}
	if u := strings.TrimSpace(flagUser); u != "" {
		set++
		ns = "user:" + u
	}
	switch set {
	case 0:
		return "", fmt.Errorf("one of --namespace, --guest or --user is required")
	case 1:
		return ns, nil
	}
	return "", fmt.Errorf("--namespace, --guest and --user are mutually exclusive")
}

// scoped opens the backend and narrows it to the selected namespace.
func scoped(ctx context.Context) (kv.Store, func(), error) {
	ns, err := namespace()
	if err != nil {
		return nil, nil, err
	}
	store, closeFn, err := openBackend(ctx, flagBackend)
	if err != nil {
		return nil, nil, err
	}
	s, err := kv.Namespaced(store, ns)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return s, closeFn, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
