package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sift-go/internal/app"
	"sift-go/internal/model"
	"sift-go/internal/sift"
)

// category command
var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add NAME DESTINATION",
	Short: "Add a category and the directory its files move to",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "AddCategory", func(_ context.Context, a *app.App) error {
			c, err := a.AddCategory(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Added category %s -> %s\n", c.Name, c.DestinationPath)
			return nil
		})
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListCategories", func(_ context.Context, a *app.App) error {
			cats, err := a.ListCategories()
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				fmt.Println("No categories defined.")
				return nil
			}
			for _, c := range cats {
				fmt.Printf("%-20s  %s\n", c.Name, c.DestinationPath)
			}
			return nil
		})
	},
}

var categoryRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "RemoveCategory", func(_ context.Context, a *app.App) error {
			if err := a.RemoveCategoryByName(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed category %s\n", args[0])
			return nil
		})
	},
}

// folder command
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage watched folders",
}

var folderAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Watch a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		return withApp(cmd, "AddFolder", func(_ context.Context, a *app.App) error {
			f, err := a.AddFolder(name, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Watching #%d %s (%s)\n", f.ID, f.Name, f.SourcePath)
			return nil
		})
	},
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watched folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListFolders", func(_ context.Context, a *app.App) error {
			folders, err := a.ListFolders()
			if err != nil {
				return err
			}
			if len(folders) == 0 {
				fmt.Println("No folders watched.")
				return nil
			}
			for _, f := range folders {
				last := "never"
				if f.LastActivityAt != nil {
					last = f.LastActivityAt.Local().Format("2006-01-02 15:04:05")
				}
				fmt.Printf("#%d  %-15s  %-6s  %-19s  %s\n", f.ID, f.Name, f.Status, last, f.SourcePath)
			}
			return nil
		})
	},
}

func folderStatusCmd(use, short string, status model.FolderStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " FOLDER",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, "SetFolderStatus", func(_ context.Context, a *app.App) error {
				f, err := a.FindFolder(args[0])
				if err != nil {
					return err
				}
				if err := a.SetFolderStatus(f.ID, status); err != nil {
					return err
				}
				fmt.Printf("%s is now %s\n", f.Name, status)
				return nil
			})
		},
	}
}

var folderProcessCmd = &cobra.Command{
	Use:   "process FOLDER",
	Short: "Process every file of a folder now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ProcessFolder", func(ctx context.Context, a *app.App) error {
			f, err := a.FindFolder(args[0])
			if err != nil {
				return err
			}
			report, err := a.ProcessFolderNow(ctx, f.ID)
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		})
	},
}

// process command
var processCmd = &cobra.Command{
	Use:   "process PATH...",
	Short: "Classify and move files or the files of directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Process", func(ctx context.Context, a *app.App) error {
			report, err := a.ProcessPaths(ctx, args)
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		})
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep every active folder once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Scan", func(ctx context.Context, a *app.App) error {
			reports, err := a.Scan(ctx)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				fmt.Println("No active folders.")
			}
			for _, r := range reports {
				printReport(r)
			}
			return nil
		})
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch active folders and serve the HTTP API until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, path, err := loadConfig()
		if err != nil {
			return err
		}
		return withApp(cmd, "Watch", func(ctx context.Context, a *app.App) error {
			return a.RunDaemon(ctx, path)
		})
	},
}

func printReport(r *sift.BatchReport) {
	fmt.Print(sift.RenderReport(r))
	if r.ReportPath != "" {
		fmt.Printf("Report written to %s\n", r.ReportPath)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func init() {
	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryRemoveCmd)
	rootCmd.AddCommand(categoryCmd)

	folderAddCmd.Flags().String("name", "", "Display name (defaults to the directory name)")
	folderCmd.AddCommand(folderAddCmd)
	folderCmd.AddCommand(folderListCmd)
	folderCmd.AddCommand(folderStatusCmd("pause", "Stop watching a folder", model.FolderPaused))
	folderCmd.AddCommand(folderStatusCmd("resume", "Resume watching a folder", model.FolderActive))
	folderCmd.AddCommand(folderProcessCmd)
	rootCmd.AddCommand(folderCmd)

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
}
