package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/filestorage/fsctl/pkg/filestore"
)

type action func(ctx context.Context, s *session) error

type command struct {
	name    string
	summary string
	args    string
	bind    func(fs *flag.FlagSet) action
}

var commands = map[string]*command{
	"upload": {
		name:    "upload",
		summary: "Upload file to server",
		args:    "--file <path> [--raw]",
		bind:    bindUpload,
	},
	"list": {
		name:    "list",
		summary: "Get uploaded file list",
		args:    "[--limit <n>] [--page <n>] [--raw]",
		bind:    bindList,
	},
	"delete": {
		name:    "delete",
		summary: "Delete an uploaded file",
		args:    "--id <id> [--raw]",
		bind:    bindDelete,
	},
	"get": {
		name:    "get",
		summary: "Get a file content",
		args:    "--id <id> [--outdir <dir>]",
		bind:    bindGet,
	},
	"count": {
		name:    "count",
		summary: "Get the number of uploaded files",
		args:    "[--raw]",
		bind:    bindCount,
	},
}

func lookup(name string) *command {
	return commands[name]
}

func (c *command) flagSet() *flag.FlagSet {
	fs := flag.NewFlagSet(programName+" "+c.name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (c *command) printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s %s %s\n\n%s\n\nFlags:\n", programName, c.name, c.args, c.summary)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
}

func required(flagName, value string) error {
	if strings.TrimSpace(value) == "" {
		return &usageError{msg: fmt.Sprintf("missing required flag --%s", flagName)}
	}
	return nil
}

func bindUpload(fs *flag.FlagSet) action {
	file := fs.String("file", "", "Path to file")
	raw := fs.Bool("raw", false, "Output raw json format")
	return func(ctx context.Context, s *session) error {
		if err := required("file", *file); err != nil {
			return err
		}
		res, err := s.client.Upload(ctx, *file)
		if err != nil {
			return err
		}
		s.logger.Debug("file uploaded", slog.String("path", *file))
		if *raw {
			return renderRaw(s.stdout, res.Raw)
		}
		return renderRecords(s.stdout, []filestore.Record{res.Record})
	}
}

func bindList(fs *flag.FlagSet) action {
	limit := fs.Int("limit", 100, "Limit of files to display")
	page := fs.Int("page", 1, "Offset of file list")
	raw := fs.Bool("raw", false, "Output raw json format")
	return func(ctx context.Context, s *session) error {
		listing, err := s.client.List(ctx, *limit, *page)
		if err != nil {
			return err
		}
		s.logger.Debug("files listed", slog.Int("records", len(listing.Records)))
		if *raw {
			return renderRaw(s.stdout, listing.Raw)
		}
		return renderRecords(s.stdout, listing.Records)
	}
}

func bindDelete(fs *flag.FlagSet) action {
	id := fs.String("id", "", "File id to delete")
	raw := fs.Bool("raw", false, "Output raw json format")
	return func(ctx context.Context, s *session) error {
		if err := required("id", *id); err != nil {
			return err
		}
		res, err := s.client.Delete(ctx, *id)
		if err != nil {
			return err
		}
		if *raw {
			return renderRaw(s.stdout, res.Raw)
		}
		return renderRecords(s.stdout, []filestore.Record{res.Record})
	}
}

func bindGet(fs *flag.FlagSet) action {
	id := fs.String("id", "", "File id to download")
	outdir := fs.String("outdir", ".", "Output directory")
	return func(ctx context.Context, s *session) error {
		if err := required("id", *id); err != nil {
			return err
		}
		outcome, err := s.client.Get(ctx, *id, *outdir)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.stdout, outcome.Message())
		if !outcome.Saved {
			return errDownloadFailed
		}
		return nil
	}
}

func bindCount(fs *flag.FlagSet) action {
	raw := fs.Bool("raw", false, "Output raw json format")
	return func(ctx context.Context, s *session) error {
		res, err := s.client.Count(ctx)
		if err != nil {
			return err
		}
		if *raw {
			return renderRaw(s.stdout, res.Raw)
		}
		return renderRecords(s.stdout, []filestore.Record{res.Record()})
	}
}
