package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"resume-builder/internal/resumes"
	"resume-builder/internal/shared/util"
	"resume-builder/internal/view"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"search"},
	Short:   "List stored resumes, newest first",
	Long:    "List stored resumes newest first. --query filters with the same case-insensitive match the builder's search box uses.",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one resume as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one resume",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write one resume to a JSON file named after its owner",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var (
	listQuery  string
	listStatus string
	listJSON   bool
	exportDir  string
)

func init() {
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Filter text")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Only records with this status: draft or submitted")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print the rendered list as JSON")
	exportCmd.Flags().StringVarP(&exportDir, "out-dir", "o", ".", "Directory to write the export into")

	rootCmd.AddCommand(listCmd, showCmd, deleteCmd, exportCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, closeFn, err := scoped(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	records, err := resumes.NewStore(store).List(ctx)
	if err != nil {
		return fmt.Errorf("list resumes: %w", err)
	}
	if listStatus != "" {
		status, err := resumes.ParseStatus(listStatus)
		if err != nil {
			return err
		}
		records = byStatus(records, status)
	}
	list := view.RenderList(records, listQuery)
	if listJSON {
		return writeJSON(cmd.OutOrStdout(), list)
	}
	printList(cmd.OutOrStdout(), list)
	return nil
}

func byStatus(records []resumes.Record, status resumes.Status) []resumes.Record {
	out := records[:0:0]
	for _, r := range records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

func printList(out io.Writer, list view.List) {
	if list.Empty {
		fmt.Fprintln(out, "No resumes found.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tSTATUS\tHEADING\tMETA")
	for _, item := range list.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			item.Index, item.ID, item.StatusLabel,
			view.UnescapeHTML(item.Heading), view.UnescapeHTML(item.Meta))
	}
	tw.Flush()
	fmt.Fprintf(out, "%d of %d shown\n", len(list.Items), list.Total)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, closeFn, err := scoped(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	rec, err := resumes.NewStore(store).Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("show %s: %w", args[0], err)
	}
	return writeJSON(cmd.OutOrStdout(), rec)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, closeFn, err := scoped(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	removed, err := resumes.NewStore(store).Delete(ctx, args[0])
	if err != nil {
		return fmt.Errorf("delete %s: %w", args[0], err)
	}
	if removed {
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "no resume with id %s\n", args[0])
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, closeFn, err := scoped(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	rec, err := resumes.NewStore(store).Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("export %s: %w", args[0], err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	dir := strings.TrimRight(exportDir, "/")
	if dir == "" {
		dir = "."
	}
	path := dir + "/" + util.ExportFileName(rec.Name, rec.ID, ".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
