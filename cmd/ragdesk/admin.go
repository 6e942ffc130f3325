package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ragdesk/internal/console"
)

func newAdminCmd(open func(*cobra.Command) *session) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage the knowledge base (admin only)",
	}

	admin.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the vector store status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := open(cmd)
			con, err := s.enter(cmd.Context(), console.ViewAdmin)
			if err != nil {
				return err
			}
			printInfo(s.out, con.Ingest.Info())
			return nil
		},
	})

	admin.AddCommand(&cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload and index documents as one batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readFiles(args)
			if err != nil {
				return err
			}

			s := open(cmd)
			ctx := cmd.Context()
			con, err := s.enter(ctx, console.ViewAdmin)
			if err != nil {
				return err
			}

			con.Ingest.SelectFiles(files)
			fmt.Fprintf(s.out, "%d files ready to upload\n", len(files))
			if !con.Ingest.SubmitBatch(ctx) {
				return fmt.Errorf("upload already in progress")
			}

			status := con.Ingest.Status()
			if status == nil {
				return fmt.Errorf("upload finished without a status")
			}
			fmt.Fprintln(s.out, status.Message)
			printInfo(s.out, con.Ingest.Info())
			if status.Type == console.StatusError {
				return fmt.Errorf("%s", status.Message)
			}
			return nil
		},
	})

	return admin
}

func printInfo(out io.Writer, info *console.IndexStatus) {
	if info == nil {
		fmt.Fprintln(out, "Vector Store Status: Loading...")
		return
	}
	fmt.Fprintf(out, "Vector Store Status: %s\n", info.Status)
	fmt.Fprintf(out, "Backend URL: %s\n", info.BackendEndpoint)
}

func readFiles(paths []string) ([]console.File, error) {
	files := make([]console.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s failed: %w", p, err)
		}
		files = append(files, console.File{
			Name:        filepath.Base(p),
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
			Data:        data,
		})
	}
	return files, nil
}
