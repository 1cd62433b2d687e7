package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"sift-go/internal/app"
)

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent file movements",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, "History", func(_ context.Context, a *app.App) error {
			recs, err := a.History(limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No movements recorded.")
				return nil
			}
			for _, r := range recs {
				fmt.Printf("#%d  %s  %-9s  %4s  %-12s  %s -> %s\n",
					r.ID,
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					r.Status,
					r.ConfidenceLabel(),
					r.Category,
					r.FromPath,
					r.ToPath,
				)
			}
			return nil
		})
	},
}

// undo command
var undoCmd = &cobra.Command{
	Use:   "undo ID",
	Short: "Move a file back to where it came from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, "Undo", func(_ context.Context, a *app.App) error {
			rec, err := a.Undo(id)
			if err != nil {
				return err
			}
			fmt.Printf("Restored %s\n", rec.FromPath)
			return nil
		})
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the movement history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Stats", func(_ context.Context, a *app.App) error {
			s, err := a.HistoryStats()
			if err != nil {
				return err
			}
			fmt.Printf("Movements:          %d\n", s.Total)
			fmt.Printf("Completed:          %d\n", s.Completed)
			fmt.Printf("Undone:             %d\n", s.Undone)
			fmt.Printf("Average confidence: %.0f%%\n", s.AverageConfidence*100)

			names := make([]string, 0, len(s.ByCategory))
			for name := range s.ByCategory {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %-20s %d\n", name, s.ByCategory[name])
			}
			return nil
		})
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search moved files by content",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, "Search", func(_ context.Context, a *app.App) error {
			results, err := a.Search(strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			for _, r := range results {
				fmt.Printf("%3d  %-12s  %s\n", r.Score, r.Category, r.Path)
				if len(r.Keywords) > 0 {
					fmt.Printf("     keywords: %s\n", strings.Join(r.Keywords, ", "))
				}
			}
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of movements to show")
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(statsCmd)
	searchCmd.Flags().IntP("limit", "n", 5, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
