package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"grit/internal/object"
	"grit/internal/repository"
	"grit/internal/tree"
	"grit/internal/watch"
	"grit/internal/workspace"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [directory]",
		Short: "Create an empty repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: wrap(func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			dir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", dir, err)
			}

			created, err := repository.Initialize(dir)
			if err != nil {
				return fmt.Errorf("initializing repository: %w", err)
			}

			meta := filepath.Join(dir, workspace.MetaDir)
			if created {
				fmt.Fprintln(cmd.OutOrStdout(), "Initialized empty grit repository in", meta)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Reinitialized existing grit repository in", meta)
			}
			return nil
		}),
	}
}

func newAddCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Stage file contents for the next commit",
		Long:  `Stores the content of every file named, recursing into directories, and records it in the index.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: wrap(func(cmd *cobra.Command, args []string) error {
			repo, cwd, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			paths := make([]string, 0, len(args))
			for _, arg := range args {
				rel, err := repo.Workspace.Rel(cwd, arg)
				if err != nil {
					return err
				}
				paths = append(paths, rel)
			}

			added, err := repo.Add(paths)
			if err != nil {
				return err
			}
			if verbose {
				for _, p := range added {
					fmt.Fprintf(cmd.OutOrStdout(), "add '%s'\n", p)
				}
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list added files")
	return cmd
}

func newCommitCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record the staged snapshot",
		Args:  cobra.NoArgs,
		RunE: wrap(func(cmd *cobra.Command, args []string) error {
			repo, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			commit, err := repo.Commit(message)
			if err != nil {
				return err
			}

			root := ""
			if commit.Parent == nil {
				root = "(root-commit) "
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s%s] %s\n", root, color.YellowString(commit.ID().Short()), commit.Title())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.MarkFlagRequired("message")
	return cmd
}

func newLsFilesCmd() *cobra.Command {
	var stage, long bool
	cmd := &cobra.Command{
		Use:   "ls-files",
		Short: "Show the paths in the index",
		Args:  cobra.NoArgs,
		RunE: wrap(func(cmd *cobra.Command, args []string) error {
			repo, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			out := cmd.OutOrStdout()
			for _, e := range repo.Files() {
				switch {
				case long:
					mtime := time.Unix(int64(e.Metadata.MTime), int64(e.Metadata.MTimeNano))
					fmt.Fprintf(out, "%o %s %8s %-14s\t%s\n", e.Metadata.Mode, e.ID.Short(),
						humanize.Bytes(uint64(e.Metadata.Size)), humanize.Time(mtime), e.Path)
				case stage:
					fmt.Fprintf(out, "%o %s 0\t%s\n", e.Metadata.Mode, e.ID, e.Path)
				default:
					fmt.Fprintln(out, e.Path)
				}
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&stage, "stage", "s", false, "show mode and object id")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show size and modification time")
	return cmd
}

func newLogCmd() *cobra.Command {
	var limit int
	var oneline bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show commit history from HEAD",
		Args:  cobra.NoArgs,
		RunE: wrap(func(cmd *cobra.Command, args []string) error {
			repo, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			commits, err := repo.Log(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			yellow := color.New(color.FgYellow).SprintFunc()
			for i, c := range commits {
				if oneline {
					fmt.Fprintf(out, "%s %s\n", yellow(c.ID().Short()), c.Title())
					continue
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, yellow("commit "+c.ID().String()))
				fmt.Fprintf(out, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
				fmt.Fprintf(out, "Date:   %s\n\n", c.Author.When.Format("Mon Jan 2 15:04:05 2006 -0700"))
				for _, line := range strings.Split(strings.TrimRight(c.Message, "\n"), "\n") {
					fmt.Fprintln(out, "    "+line)
				}
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits")
	cmd.Flags().BoolVar(&oneline, "oneline", false, "one line per commit")
	return cmd
}

func newCatFileCmd() *cobra.Command {
	var showType, showSize bool
	cmd := &cobra.Command{
		Use:   "cat-file <object>",
		Short: "Print the content of a stored object",
		Long:  `Accepts a full object id, an abbreviated id of at least 4 digits, or HEAD.`,
		Args:  cobra.ExactArgs(1),
		RunE: wrap(func(cmd *cobra.Command, args []string) error {
			repo, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			kind, payload, err := repo.CatFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, kind)
			case showSize:
				fmt.Fprintln(out, len(payload))
			case kind == object.KindTree:
				entries, err := tree.ParseEntries(payload)
				if err != nil {
					return err
				}
				for _, e := range entries {
					mode := e.Mode
					if len(mode) < 6 {
						mode = "0" + mode
					}
					fmt.Fprintf(out, "%s %s %s\t%s\n", mode, e.Kind(), e.ID, e.Name)
				}
			default:
				out.Write(payload)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&showType, "type", "t", false, "show the object kind")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "show the payload size")
	cmd.MarkFlagsMutuallyExclusive("type", "size")
	return cmd
}

func newObjectsCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "objects",
		Short: "List cataloged objects",
		Args:  cobra.NoArgs,
		RunE: wrap(func(cmd *cobra.Command, args []string) error {
			switch object.Kind(kind) {
			case "", object.KindBlob, object.KindTree, object.KindCommit:
			default:
				return fmt.Errorf("unknown object kind %q", kind)
			}

			repo, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			metas, err := repo.Objects(object.Kind(kind))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var total uint64
			for _, m := range metas {
				total += uint64(m.Size)
				fmt.Fprintf(out, "%s %-6s %8s  %s\n", m.ID, m.Kind, humanize.Bytes(uint64(m.Size)), humanize.Time(m.CreatedAt))
			}
			fmt.Fprintf(out, "%s objects, %s\n", humanize.Comma(int64(len(metas))), humanize.Bytes(total))
			return nil
		}),
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list objects of this kind (blob, tree, commit)")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-stage tracked files whenever they change",
		Long:  `Runs until interrupted. Only files already in the index are staged again; new files still need grit add.`,
		Args:  cobra.NoArgs,
		RunE: wrap(func(cmd *cobra.Command, args []string) error {
			repo, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			w, err := watch.New(repo.Root, repo, repo.Logger.Named("watch"))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("watching"), repo.Root)
			logger.WithInvocationID(cmd.Context()).Info("watching workspace", zap.String("root", repo.Root))
			if err := w.Run(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "stopped")
			return nil
		}),
	}
}
