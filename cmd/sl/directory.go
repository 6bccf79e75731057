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
)

func userCmd() *cobra.Command {
	usr := &cobra.Command{
		Use:   "user",
		Short: "Manage users and their API keys",
		Long:  "Users carry a role (admin, manager, member) whose permissions come from the rbac section of stageline.yml.",
	}
	usr.AddCommand(userListCmd())
	usr.AddCommand(userCreateCmd())
	usr.AddCommand(userUpdateCmd())
	usr.AddCommand(userDeleteCmd())
	usr.AddCommand(userKeyCmd())
	return usr
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				rows := make([]table.Row, 0, len(items))
				for _, u := range items {
					rows = append(rows, table.Row{u.ID, u.Name, u.Email, u.Role, idOrEmpty(u.AreaID)})
				}
				renderTable(table.Row{"ID", "Name", "Email", "Role", "Area"}, rows)
				return nil
			})
		},
	}
}

func userFlags(cmd *cobra.Command, opts *engine.UserOptions) {
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Role, "role", domain.RoleMember, "admin, manager or member")
	cmd.Flags().Int64("area", 0, "area id")
}

func userCreateCmd() *cobra.Command {
	var opts engine.UserOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.AreaID = flagID(cmd, "area")
			opts.ActorID = actorID()
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				u, err := a.Engine.CreateUser(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	userFlags(cmd, &opts)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userUpdateCmd() *cobra.Command {
	var opts engine.UserOptions
	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Replace user details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			opts.ID = id
			opts.AreaID = flagID(cmd, "area")
			opts.ActorID = actorID()
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				u, err := a.Engine.UpdateUser(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	userFlags(cmd, &opts)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user; their projects and activities lose the reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.DeleteUser(ctx, id, actorID()); err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"deleted": id})
			})
		},
	}
}

func userKeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "key", Short: "Manage API keys"}

	var name string
	create := &cobra.Command{
		Use:   "create <user-id>",
		Short: "Issue an API key (printed once)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				k, secret, err := a.Engine.CreateAPIKey(ctx, userID, name, actorID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": k.ID, "user_id": k.UserID, "name": k.Name, "key": secret})
				}
				fmt.Printf("key %s created for user %d\n%s\n", k.ID, k.UserID, secret)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "key label")
	key.AddCommand(create)

	key.AddCommand(&cobra.Command{
		Use:   "list <user-id>",
		Short: "List API keys of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				keys, err := a.Engine.ListAPIKeys(ctx, userID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				rows := make([]table.Row, 0, len(keys))
				for _, k := range keys {
					rows = append(rows, table.Row{k.ID, k.Name, k.CreatedAt})
				}
				renderTable(table.Row{"ID", "Name", "Created"}, rows)
				return nil
			})
		},
	})

	key.AddCommand(&cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.RevokeAPIKey(ctx, args[0], actorID()); err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"revoked": args[0]})
			})
		},
	})
	return key
}

func areaCmd() *cobra.Command {
	area := &cobra.Command{Use: "area", Short: "Manage areas"}
	area.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List areas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.ListAreas(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				rows := make([]table.Row, 0, len(items))
				for _, it := range items {
					rows = append(rows, table.Row{it.ID, it.Name, it.Description})
				}
				renderTable(table.Row{"ID", "Name", "Description"}, rows)
				return nil
			})
		},
	})

	var in domain.Area
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an area",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				created, err := a.Engine.CreateArea(ctx, in, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(created)
			})
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "area name")
	create.Flags().StringVar(&in.Description, "description", "", "description")
	_ = create.MarkFlagRequired("name")
	area.AddCommand(create)

	var upd domain.Area
	update := &cobra.Command{
		Use:   "update <area-id>",
		Short: "Update an area",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "area")
			if err != nil {
				return err
			}
			upd.ID = id
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				updated, err := a.Engine.UpdateArea(ctx, upd, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(updated)
			})
		},
	}
	update.Flags().StringVar(&upd.Name, "name", "", "area name")
	update.Flags().StringVar(&upd.Description, "description", "", "description")
	_ = update.MarkFlagRequired("name")
	area.AddCommand(update)

	area.AddCommand(&cobra.Command{
		Use:   "delete <area-id>",
		Short: "Delete an area",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "area")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.DeleteArea(ctx, id, actorID()); err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"deleted": id})
			})
		},
	})
	return area
}

func categoryCmd() *cobra.Command {
	cat := &cobra.Command{Use: "category", Short: "Manage project categories"}
	cat.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.ListCategories(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				rows := make([]table.Row, 0, len(items))
				for _, it := range items {
					rows = append(rows, table.Row{it.ID, it.Name, it.Color})
				}
				renderTable(table.Row{"ID", "Name", "Color"}, rows)
				return nil
			})
		},
	})

	var in domain.Category
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				created, err := a.Engine.CreateCategory(ctx, in, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(created)
			})
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "category name")
	create.Flags().StringVar(&in.Color, "color", "", "display color")
	_ = create.MarkFlagRequired("name")
	cat.AddCommand(create)

	var upd domain.Category
	update := &cobra.Command{
		Use:   "update <category-id>",
		Short: "Update a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}
			upd.ID = id
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				updated, err := a.Engine.UpdateCategory(ctx, upd, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(updated)
			})
		},
	}
	update.Flags().StringVar(&upd.Name, "name", "", "category name")
	update.Flags().StringVar(&upd.Color, "color", "", "display color")
	_ = update.MarkFlagRequired("name")
	cat.AddCommand(update)

	cat.AddCommand(&cobra.Command{
		Use:   "delete <category-id>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.DeleteCategory(ctx, id, actorID()); err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"deleted": id})
			})
		},
	})
	return cat
}
