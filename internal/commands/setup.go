package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"struk/internal/core"
	"struk/internal/prefs"
	"struk/internal/storage"
)

func newInitCommand(rt *runtime) *cobra.Command {
	var name, theme, lang string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the local store, starter categories and preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// Opening the app already seeded the defaults; init only
			// reports them and applies the flags.
			if name != "" {
				if _, err := rt.app.Profile.Update(ctx, core.ProfilePatch{Name: &name}); err != nil {
					return err
				}
			}
			p := rt.app.Prefs
			if theme != "" {
				p.Theme = prefs.Theme(theme)
			}
			if lang != "" {
				p.Lang = prefs.Lang(lang)
			}
			if err := prefs.Save(rt.app.Config.PrefsPath, p); err != nil {
				return err
			}

			prof, err := rt.app.Profile.Get(ctx)
			if err != nil {
				return err
			}
			cats, err := rt.app.Categories.List(ctx, "")
			if err != nil {
				return err
			}
			version, dirty, err := storage.SchemaVersion(rt.app.Config.DBPath)
			if err != nil {
				return fmt.Errorf("reading schema version: %w", err)
			}
			if dirty {
				rt.out.Warning("Schema v%d is marked dirty; a migration did not finish", version)
			}
			rt.out.Success("Store ready at %s", rt.app.Config.DBPath)
			rt.out.Info("Schema: v%d", version)
			rt.out.Info("Profile: %s", prof.Name)
			rt.out.Info("Categories: %d", len(cats))
			rt.out.Info("Preferences: theme=%s lang=%s (%s)", p.Theme, p.Lang, rt.app.Config.PrefsPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "your display name")
	cmd.Flags().StringVar(&theme, "theme", "", "light or dark")
	cmd.Flags().StringVar(&lang, "lang", "", "en or id")
	return cmd
}

func newCategoriesCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
	}

	var listType string
	list := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var t core.TxType
			if listType != "" {
				parsed, err := core.ParseTxType(listType)
				if err != nil {
					return err
				}
				t = parsed
			}
			cats, err := rt.app.Categories.List(cmd.Context(), t)
			if err != nil {
				return err
			}
			for _, c := range cats {
				rt.out.Info("%-8s %s %-20s %s", c.Type, c.Icon, c.Name, faint.Sprint(c.ID))
			}
			return nil
		},
	}
	list.Flags().StringVarP(&listType, "type", "t", "", "expense or income")

	var addType, icon string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := core.ParseTxType(addType)
			if err != nil {
				return err
			}
			c, err := rt.app.Categories.Add(cmd.Context(), args[0], icon, t)
			if err != nil {
				return err
			}
			rt.out.Success("Added %s category %s", c.Type, c.Name)
			return nil
		},
	}
	add.Flags().StringVarP(&addType, "type", "t", string(core.Expense), "expense or income")
	add.Flags().StringVar(&icon, "icon", "", "emoji shown next to the name")

	var delType string
	del := &cobra.Command{
		Use:   "delete <name|id>",
		Short: "Delete a category; transactions keep their category name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := core.ParseTxType(delType)
			if err != nil {
				return err
			}
			id := args[0]
			if c, ok, err := rt.app.Categories.Find(cmd.Context(), args[0], t); err != nil {
				return err
			} else if ok {
				id = c.ID
			}
			if err := rt.app.Categories.Delete(cmd.Context(), id); err != nil {
				return err
			}
			rt.out.Success("Deleted category %s", args[0])
			return nil
		},
	}
	del.Flags().StringVarP(&delType, "type", "t", string(core.Expense), "expense or income")

	cmd.AddCommand(list, add, del)
	return cmd
}

func newProfileCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change the profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := rt.app.Profile.Get(cmd.Context())
			if err != nil {
				return err
			}
			o := rt.out
			o.Info("Name:   %s", p.Name)
			if p.AvatarURL != "" {
				o.Info("Avatar: %s", p.AvatarURL)
			}
			pinState := "not set"
			if p.PIN != "" {
				pinState = "set"
			}
			o.Info("PIN:    %s", pinState)
			if p.GoogleSheetID != "" {
				o.Info("Sheet:  %s (%s)", p.GoogleSheetName, p.GoogleSheetID)
			}
			if p.GoogleEmail != "" {
				o.Info("Google: %s", p.GoogleEmail)
			}
			return nil
		},
	}

	var name, avatar string
	set := &cobra.Command{
		Use:   "set",
		Short: "Change name or avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch core.ProfilePatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("avatar") {
				patch.AvatarURL = &avatar
			}
			if patch == (core.ProfilePatch{}) {
				return fmt.Errorf("nothing to change, pass --name or --avatar")
			}
			p, err := rt.app.Profile.Update(cmd.Context(), patch)
			if err != nil {
				return err
			}
			rt.out.Success("Profile updated for %s", p.Name)
			return nil
		},
	}
	set.Flags().StringVar(&name, "name", "", "display name")
	set.Flags().StringVar(&avatar, "avatar", "", "avatar URL")

	pin := &cobra.Command{
		Use:   "pin <six digits|clear>",
		Short: "Set or clear the PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := args[0]
			if value == "clear" {
				value = ""
			}
			if err := rt.app.Profile.SetPIN(cmd.Context(), value); err != nil {
				return err
			}
			if value == "" {
				rt.out.Success("PIN removed")
			} else {
				rt.out.Success("PIN set")
			}
			return nil
		},
	}

	verify := &cobra.Command{
		Use:   "verify <pin>",
		Short: "Check a PIN against the profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := rt.app.Profile.CheckPIN(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("wrong PIN")
			}
			rt.out.Success("PIN accepted")
			return nil
		},
	}

	cmd.AddCommand(show, set, pin, verify)
	return cmd
}
