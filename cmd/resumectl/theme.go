package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resume-builder/internal/resumes"
)

var themeCmd = &cobra.Command{
	Use:   "theme [light|dark|toggle]",
	Short: "Show or change the saved theme",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTheme,
}

func init() {
	rootCmd.AddCommand(themeCmd)
}

func runTheme(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, closeFn, err := scoped(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	themes := resumes.NewThemeStore(store)
	var theme resumes.Theme
	switch {
	case len(args) == 0:
		theme, err = themes.Get(ctx)
	case args[0] == "toggle":
		theme, err = themes.Toggle(ctx)
	default:
		theme, err = resumes.ParseTheme(args[0])
		if err == nil {
			err = themes.Set(ctx, theme)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), theme)
	return nil
}
