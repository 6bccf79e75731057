package main

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stageline/internal/app"
	"stageline/internal/domain"
	"stageline/internal/engine"
)

func stageCmd() *cobra.Command {
	st := &cobra.Command{
		Use:   "stage",
		Short: "Manage project stages",
		Long:  "Stages are board columns ordered by ordinal number. 'move up' swaps with ordinal+1, 'move down' with ordinal-1.",
	}
	st.AddCommand(stageListCmd())
	st.AddCommand(stageCreateCmd())
	st.AddCommand(stageUpdateCmd())
	st.AddCommand(stageDeleteCmd())
	st.AddCommand(stageMoveCmd())
	return st
}

func printStages(items []domain.Stage) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	rows := make([]table.Row, 0, len(items))
	for _, s := range items {
		rows = append(rows, table.Row{s.OrdinalNumber, s.ID, s.Name, s.Status, s.Color})
	}
	renderTable(table.Row{"#", "ID", "Name", "Status", "Color"}, rows)
	return nil
}

func stageListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List stages in ordinal order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.ListStages(ctx, projectID)
				if err != nil {
					return err
				}
				return printStages(items)
			})
		},
	}
}

func stageCreateCmd() *cobra.Command {
	var opts engine.StageCreateOptions
	cmd := &cobra.Command{
		Use:   "create <project-id>",
		Short: "Append a stage to the end of the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			opts.ProjectID = projectID
			opts.ActorID = actorID()
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				st, err := a.Engine.CreateStage(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(st)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "stage name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Color, "color", "", "display color")
	cmd.Flags().StringVar(&opts.Status, "status", "", "free-form stage status")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func stageUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <stage-id>",
		Short: "Update stage details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "stage")
			if err != nil {
				return err
			}
			opts := engine.StageUpdateOptions{
				ID:          id,
				Name:        flagString(cmd, "name"),
				Description: flagString(cmd, "description"),
				Color:       flagString(cmd, "color"),
				Status:      flagString(cmd, "status"),
				ActorID:     actorID(),
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				st, err := a.Engine.UpdateStage(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(st)
			})
		},
	}
	cmd.Flags().String("name", "", "stage name")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("color", "", "display color")
	cmd.Flags().String("status", "", "free-form stage status")
	return cmd
}

func stageDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <stage-id>",
		Short: "Delete a stage and its activities, closing the ordinal gap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "stage")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.DeleteStage(ctx, id, actorID()); err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"deleted": id})
			})
		},
	}
}

func stageMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <stage-id> <up|down>",
		Short: "Swap a stage with its neighbor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "stage")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				st, err := a.Engine.ReorderStage(ctx, id, args[1], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(st)
			})
		},
	}
}

func activityCmd() *cobra.Command {
	act := &cobra.Command{
		Use:   "activity",
		Short: "Manage activities",
		Long:  "Activities live in a stage. Every change re-derives the owning project's status.",
	}
	act.AddCommand(activityListCmd())
	act.AddCommand(activityCreateCmd())
	act.AddCommand(activityShowCmd())
	act.AddCommand(activityUpdateCmd())
	act.AddCommand(activityStatusCmd())
	act.AddCommand(activityDeleteCmd())
	return act
}

func activityListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <stage-id>",
		Short: "List activities of a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stageID, err := parseID(args[0], "stage")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.ListActivities(ctx, stageID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				rows := make([]table.Row, 0, len(items))
				for _, it := range items {
					rows = append(rows, table.Row{it.ID, it.Title, it.Status, it.Priority, idOrEmpty(it.AssignedToUserID), it.StartDate, it.EndDate})
				}
				renderTable(table.Row{"ID", "Title", "Status", "Priority", "Assignee", "Start", "End"}, rows)
				return nil
			})
		},
	}
}

func activityCreateCmd() *cobra.Command {
	var opts engine.ActivityCreateOptions
	cmd := &cobra.Command{
		Use:   "create <stage-id>",
		Short: "Create an activity in a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stageID, err := parseID(args[0], "stage")
			if err != nil {
				return err
			}
			opts.StageID = stageID
			opts.AssignedToUserID = flagID(cmd, "assignee")
			opts.ActorID = actorID()
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				act, err := a.Engine.CreateActivity(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(act)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "activity title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "initial status (default pending)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "low, medium or high (default medium)")
	cmd.Flags().StringVar(&opts.StartDate, "start", "", "planned start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.EndDate, "end", "", "planned end date (YYYY-MM-DD)")
	cmd.Flags().Int64("assignee", 0, "assigned user id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func activityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <activity-id>",
		Short: "Show an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "activity")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				act, err := a.Engine.GetActivity(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(act)
			})
		},
	}
}

func activityUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <activity-id>",
		Short: "Update an activity; --stage moves it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "activity")
			if err != nil {
				return err
			}
			opts := engine.ActivityUpdateOptions{
				ID:                id,
				StageID:           flagID(cmd, "stage"),
				Title:             flagString(cmd, "title"),
				Description:       flagString(cmd, "description"),
				Status:            flagString(cmd, "status"),
				Priority:          flagString(cmd, "priority"),
				AssignedToUserID:  flagID(cmd, "assignee"),
				StartDate:         flagString(cmd, "start"),
				EndDate:           flagString(cmd, "end"),
				ExecutedStartDate: flagString(cmd, "executed-start"),
				ExecutedEndDate:   flagString(cmd, "executed-end"),
				ActorID:           actorID(),
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				act, err := a.Engine.UpdateActivity(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(act)
			})
		},
	}
	cmd.Flags().Int64("stage", 0, "move to this stage")
	cmd.Flags().String("title", "", "activity title")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("status", "", "status")
	cmd.Flags().String("priority", "", "low, medium or high")
	cmd.Flags().Int64("assignee", 0, "assigned user id (0 unassigns)")
	cmd.Flags().String("start", "", "planned start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "planned end date (YYYY-MM-DD)")
	cmd.Flags().String("executed-start", "", "executed start (RFC3339, empty clears)")
	cmd.Flags().String("executed-end", "", "executed end (RFC3339, empty clears)")
	return cmd
}

func activityStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <activity-id> <status>",
		Short: "Change activity status and re-derive the project status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "activity")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				act, err := a.Engine.ApplyActivityStatusChange(ctx, id, args[1], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(act)
			})
		},
	}
}

func activityDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <activity-id>",
		Short: "Delete an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "activity")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.DeleteActivity(ctx, id, actorID()); err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"deleted": id})
			})
		},
	}
}
