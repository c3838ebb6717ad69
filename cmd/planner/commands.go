package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"planner/internal/backup"
	"planner/internal/overlay"
	"planner/internal/suggest"
	"planner/internal/task"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the merged task list",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Print(renderView(a.applier.View()))
			return nil
		},
	}
}

// itemFlags 新增/编辑共用的字段旗标 / shared field flags for add and edit
type itemFlags struct {
	notes    string
	typ      string
	pillar   string
	owner    string
	start    string
	due      string
	priority int
	estimate int
	energy   string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&f.typ, "type", "", "Item type: task, event, or meeting")
	cmd.Flags().StringVar(&f.pillar, "pillar", "", "Category code")
	cmd.Flags().StringVar(&f.owner, "owner", "", "Owner id")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.priority, "priority", 0, "Priority 1-4 (1 highest)")
	cmd.Flags().IntVar(&f.estimate, "estimate", 0, "Estimated minutes")
	cmd.Flags().StringVar(&f.energy, "energy", "", "Energy level")
}

// fields 只收集显式给出的旗标 / collect only the flags that were set
func (f *itemFlags) fields(cmd *cobra.Command) map[string]any {
	out := map[string]any{}
	if cmd.Flags().Changed("notes") {
		out["notes"] = f.notes
	}
	if cmd.Flags().Changed("type") {
		out["type"] = f.typ
	}
	if cmd.Flags().Changed("pillar") {
		out["pillar"] = f.pillar
	}
	if cmd.Flags().Changed("owner") {
		out["owner_id"] = f.owner
	}
	if cmd.Flags().Changed("start") {
		out["start_date"] = f.start
	}
	if cmd.Flags().Changed("due") {
		out["due_date"] = f.due
	}
	if cmd.Flags().Changed("priority") {
		out["priority"] = float64(f.priority)
	}
	if cmd.Flags().Changed("estimate") {
		out["estimated_minutes"] = float64(f.estimate)
	}
	if cmd.Flags().Changed("energy") {
		out["energy"] = f.energy
	}
	return out
}

func addCmd() *cobra.Command {
	var flags itemFlags
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a new task to the overlay",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("title must not be empty")
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			fields := flags.fields(cmd)
			fields["title"] = title
			a.applier.Apply([]suggest.Op{{Kind: suggest.KindAdd, Fields: fields}})

			added := a.applier.Overlay().NewTasks
			fmt.Printf("added %s\n", added[len(added)-1].ID)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func editCmd() *cobra.Command {
	var flags itemFlags
	var title string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit fields of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			fields := flags.fields(cmd)
			if cmd.Flags().Changed("title") {
				if strings.TrimSpace(title) == "" {
					return fmt.Errorf("title must not be empty")
				}
				fields["title"] = title
			}
			if len(fields) == 0 {
				return fmt.Errorf("no fields to change")
			}
			a.applier.Apply([]suggest.Op{{Kind: suggest.KindUpdate, ID: args[0], Fields: fields}})
			fmt.Printf("updated %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	flags.register(cmd)
	return cmd
}

func doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark an item completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if a.applier.View().StatusOf(args[0]) == task.StatusCompleted {
				fmt.Printf("%s is already completed\n", args[0])
				return nil
			}
			return a.applier.ToggleComplete(args[0])
		},
	}
}

func undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo <id>",
		Short: "Reopen a completed item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if a.applier.View().StatusOf(args[0]) != task.StatusCompleted {
				fmt.Printf("%s is not completed\n", args[0])
				return nil
			}
			return a.applier.ToggleComplete(args[0])
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Tombstone an item (hides it from every view)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			a.applier.Apply([]suggest.Op{{Kind: suggest.KindDelete, ID: args[0]}})
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

func todayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today <id>",
		Short: "Move an item to today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.applier.MoveToToday(args[0])
		},
	}
}

func deferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defer <id>",
		Short: "Push an item out by one day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.applier.DeferOneDay(args[0])
		},
	}
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the overlay record as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			data, err := overlay.Encode(a.applier.Overlay())
			if err != nil {
				return fmt.Errorf("encode overlay: %w", err)
			}
			if out == "" {
				fmt.Println(string(data))
				return nil
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to file instead of stdout")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import an overlay record, re-normalizing its shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read overlay file: %w", err)
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			// 导入不信任原始形状，重新套用脚手架归一化
			// imports never trust the raw shape; scaffold normalization re-applies
			a.applier.ReplaceOverlay(overlay.Decode(data))
			fmt.Println("overlay imported")
			return nil
		},
	}
}

func backupCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump a merged-view snapshot (write-only, YAML)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create snapshot file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return backup.Write(w, a.applier.View())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to file instead of stdout")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show learning counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			st := a.applier.Overlay().Learning.Stats
			fmt.Printf("completes: %d\nmoves: %d\n", st.Completes, st.Moves)
			return nil
		},
	}
}
