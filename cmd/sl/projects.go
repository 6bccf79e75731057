package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stageline/internal/app"
	"stageline/internal/domain"
	"stageline/internal/engine"
	"stageline/internal/repo"
)

func projectCmd() *cobra.Command {
	prj := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long:  "Projects own an ordered board of stages. Status is derived from activities; completed and archived are set explicitly.",
	}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	prj.AddCommand(projectDeleteCmd())
	prj.AddCommand(projectTransitionCmd("complete", "Mark a project completed", func(e engine.Engine) func(context.Context, int64, string) (domain.Project, error) {
		return e.CompleteProject
	}))
	prj.AddCommand(projectTransitionCmd("archive", "Archive a project", func(e engine.Engine) func(context.Context, int64, string) (domain.Project, error) {
		return e.ArchiveProject
	}))
	prj.AddCommand(projectTransitionCmd("unarchive", "Unarchive a project", func(e engine.Engine) func(context.Context, int64, string) (domain.Project, error) {
		return e.UnarchiveProject
	}))
	prj.AddCommand(projectRecomputeCmd())
	prj.AddCommand(projectBoardCmd())
	prj.AddCommand(projectTimelineCmd())
	prj.AddCommand(projectSummaryCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	var f repo.ProjectFilters
	var archived string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch archived {
			case "all":
			case "true", "false":
				v := archived == "true"
				f.Archived = &v
			default:
				return fmt.Errorf("--archived must be true, false or all")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.ListProjects(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				rows := make([]table.Row, 0, len(items))
				for _, p := range items {
					rows = append(rows, table.Row{p.ID, p.Name, p.Status, p.Archived, p.StartDate, p.EndDate, idOrEmpty(p.ManagerUserID)})
				}
				renderTable(table.Row{"ID", "Name", "Status", "Archived", "Start", "End", "Manager"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&archived, "archived", "false", "true, false or all")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().Int64Var(&f.AreaID, "area", 0, "area id filter")
	cmd.Flags().Int64Var(&f.CategoryID, "category", 0, "category id filter")
	cmd.Flags().Int64Var(&f.ManagerUserID, "manager", 0, "manager user id filter")
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var opts engine.ProjectCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project with its default stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ManagerUserID = flagID(cmd, "manager")
			opts.CategoryID = flagID(cmd, "category")
			opts.AreaID = flagID(cmd, "area")
			opts.ActorID = actorID()
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				p, err := a.Engine.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.StartDate, "start", "", "planned start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.EndDate, "end", "", "planned end date (YYYY-MM-DD)")
	cmd.Flags().Int64("manager", 0, "manager user id")
	cmd.Flags().Int64("category", 0, "category id")
	cmd.Flags().Int64("area", 0, "area id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				p, err := a.Engine.GetProject(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Update project details (0 clears a reference)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			opts := engine.ProjectUpdateOptions{
				ID:            id,
				Name:          flagString(cmd, "name"),
				Description:   flagString(cmd, "description"),
				StartDate:     flagString(cmd, "start"),
				EndDate:       flagString(cmd, "end"),
				ManagerUserID: flagID(cmd, "manager"),
				CategoryID:    flagID(cmd, "category"),
				AreaID:        flagID(cmd, "area"),
				ActorID:       actorID(),
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				p, err := a.Engine.UpdateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().String("name", "", "project name")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("start", "", "planned start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "planned end date (YYYY-MM-DD)")
	cmd.Flags().Int64("manager", 0, "manager user id")
	cmd.Flags().Int64("category", 0, "category id")
	cmd.Flags().Int64("area", 0, "area id")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project with its stages and activities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.DeleteProject(ctx, id, actorID()); err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"deleted": id})
			})
		},
	}
}

func projectTransitionCmd(use, short string, pick func(engine.Engine) func(context.Context, int64, string) (domain.Project, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <project-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				p, err := pick(a.Engine)(ctx, id, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectRecomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <project-id>",
		Short: "Re-derive the project status from its activities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				agg, err := a.Engine.RecomputeProject(ctx, id, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(agg)
			})
		},
	}
}

func projectBoardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board <project-id>",
		Short: "Show stages in order with their activities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				b, err := a.Engine.Board(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(b)
				}
				fmt.Printf("%s [%s]\n", b.Project.Name, b.Project.Status)
				var rows []table.Row
				for _, st := range b.Stages {
					if len(st.Activities) == 0 {
						rows = append(rows, table.Row{st.OrdinalNumber, st.Name, "", "", ""})
						continue
					}
					for _, act := range st.Activities {
						rows = append(rows, table.Row{st.OrdinalNumber, st.Name, act.ID, act.Title, act.Status})
					}
				}
				renderTable(table.Row{"#", "Stage", "Activity", "Title", "Status"}, rows)
				return nil
			})
		},
	}
}

func projectTimelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <project-id>",
		Short: "Show planned and executed dates of every activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				tl, err := a.Engine.Timeline(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tl)
				}
				rows := make([]table.Row, 0, len(tl.Items))
				for _, it := range tl.Items {
					rows = append(rows, table.Row{
						it.StageName, it.Title, it.Status,
						it.StartDate, it.EndDate,
						stringOrEmpty(it.ExecutedStartDate), stringOrEmpty(it.ExecutedEndDate),
					})
				}
				renderTable(table.Row{"Stage", "Activity", "Status", "Start", "End", "Executed start", "Executed end"}, rows)
				return nil
			})
		},
	}
}

func projectSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <project-id>",
		Short: "Show the activity tally behind the project status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				s, err := a.Engine.Summary(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				renderTable(
					table.Row{"Status", "Derived", "Archived", "Stages", "Total", "Completed", "In progress", "Pending"},
					[]table.Row{{s.Status, s.DerivedStatus, s.Archived, s.Stages, s.Tally.Total, s.Tally.Completed, s.Tally.InProgress, s.Tally.Pending}},
				)
				return nil
			})
		},
	}
}
