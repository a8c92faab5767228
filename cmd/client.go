/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zidesign/catalog/config"
	"github.com/zidesign/catalog/internal/client"
	"github.com/zidesign/catalog/internal/coordinator"
	"github.com/zidesign/catalog/internal/projection"
	"github.com/zidesign/catalog/pkg/logger"
	"github.com/zidesign/catalog/types"
)

// withCoordinator opens the local projection, wires it to the remote
// endpoints and runs fn. The projection is closed afterwards.
func withCoordinator(ctx context.Context, fn func(c *coordinator.Coordinator) error) error {
	cfg := config.LoadConfig()
	log := logger.New("zidesign", cfg.Env, cfg.LogLevel)
	log.SetOutput(os.Stderr)

	slot, err := openSlot(ctx, cfg.Client)
	if err != nil {
		return err
	}
	store, err := projection.Open(ctx, slot)
	if err != nil {
		_ = slot.Close()
		return err
	}
	defer store.Close()

	httpClient := client.NewHTTPClient(cfg.Client.Timeout)
	c := coordinator.New(
		client.NewWorks(cfg.Client.WorksURL, httpClient, store.Token),
		client.NewAuth(cfg.Client.AuthURL, httpClient),
		store,
		log,
	)
	return fn(c)
}

func openSlot(ctx context.Context, cfg config.ClientConfig) (projection.Slot, error) {
	if cfg.RedisURL != "" {
		slot, err := projection.OpenRedisSlot(ctx, cfg.RedisURL, cfg.SlotName)
		if err != nil {
			return nil, err
		}
		return slot, nil
	}
	slot, err := projection.NewFileSlot(cfg.StateDir, cfg.SlotName)
	if err != nil {
		return nil, err
	}
	return slot, nil
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		password, _ := cmd.Flags().GetString("password")
		return withCoordinator(cmd.Context(), func(c *coordinator.Coordinator) error {
			user, err := c.Register(cmd.Context(), types.RegisterInput{Email: email, Name: name, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", user.Email, user.Role)
			return nil
		})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with an existing account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		return withCoordinator(cmd.Context(), func(c *coordinator.Coordinator) error {
			user, err := c.Login(cmd.Context(), types.LoginInput{Email: email, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", user.Email, user.Role)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(cmd.Context(), func(c *coordinator.Coordinator) error {
			return c.Logout(cmd.Context())
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(cmd.Context(), func(c *coordinator.Coordinator) error {
			user, ok := c.Store().User()
			if !ok {
				return fmt.Errorf("%w: not signed in", types.ErrUnauthorized)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "id\t%s\n", user.ID)
			fmt.Fprintf(w, "email\t%s\n", user.Email)
			fmt.Fprintf(w, "name\t%s\n", user.Name)
			fmt.Fprintf(w, "role\t%s\n", user.Role)
			if user.Bio != "" {
				fmt.Fprintf(w, "bio\t%s\n", user.Bio)
			}
			return w.Flush()
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Edit the signed-in user's name, bio or avatar",
	RunE: func(cmd *cobra.Command, args []string) error {
		var update types.ProfileUpdate
		for flag, dst := range map[string]**string{"name": &update.Name, "bio": &update.Bio, "avatar": &update.Avatar} {
			if cmd.Flags().Changed(flag) {
				v, _ := cmd.Flags().GetString(flag)
				*dst = &v
			}
		}
		return withCoordinator(cmd.Context(), func(c *coordinator.Coordinator) error {
			user, err := c.UpdateProfile(cmd.Context(), update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", user.Email)
			return nil
		})
	},
}

var worksCmd = &cobra.Command{
	Use:   "works",
	Short: "Browse, submit and moderate works",
}

var worksListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch works matching a filter",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		return withCoordinator(cmd.Context(), func(c *coordinator.Coordinator) error {
			if _, err := c.ChangeFilter(cmd.Context(), filter); err != nil {
				return err
			}
			return printWorks(cmd.OutOrStdout(), c.Store())
		})
	},
}

var worksSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new work",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := inputFromFlags(cmd)
		if err != nil {
			return err
		}
		return withCoordinator(cmd.Context(), func(c *coordinator.Coordinator) error {
			work, err := c.Submit(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", work.ID, work.Status)
			return nil
		})
	},
}

func moderateCmd(use string, status types.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " WORK_ID",
		Short: fmt.Sprintf("Mark a pending work %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCoordinator(cmd.Context(), func(c *coordinator.Coordinator) error {
				work, err := c.Moderate(cmd.Context(), args[0], status)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", work.ID, work.Status)
				return nil
			})
		},
	}
}

var worksDeleteCmd = &cobra.Command{
	Use:   "delete WORK_ID",
	Short: "Delete a work you own, or any work as admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(cmd.Context(), func(c *coordinator.Coordinator) error {
			return c.Delete(cmd.Context(), args[0])
		})
	},
}

var favCmd = &cobra.Command{
	Use:   "fav WORK_ID",
	Short: "Toggle a work in the local favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(cmd.Context(), func(c *coordinator.Coordinator) error {
			on, err := c.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			verb := "removed from"
			if on {
				verb = "added to"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s favorites\n", args[0], verb)
			return nil
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Dump the local projection as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(cmd.Context(), func(c *coordinator.Coordinator) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(c.Store().Snapshot())
		})
	},
}

func filterFromFlags(cmd *cobra.Command) (types.WorkFilter, error) {
	var filter types.WorkFilter
	var err error
	if raw, _ := cmd.Flags().GetString("status"); raw != "" {
		if filter.Status, err = types.ParseStatus(raw); err != nil {
			return filter, err
		}
	}
	if raw, _ := cmd.Flags().GetString("category"); raw != "" {
		if filter.Category, err = types.ParseCategory(raw); err != nil {
			return filter, err
		}
	}
	filter.AuthorID, _ = cmd.Flags().GetString("author")
	return filter, nil
}

func inputFromFlags(cmd *cobra.Command) (types.WorkInput, error) {
	var in types.WorkInput
	var err error
	in.Title, _ = cmd.Flags().GetString("title")
	in.Description, _ = cmd.Flags().GetString("description")
	in.Tags, _ = cmd.Flags().GetStringSlice("tags")
	raw, _ := cmd.Flags().GetString("category")
	if in.Category, err = types.ParseCategory(raw); err != nil {
		return in, err
	}
	raw, _ = cmd.Flags().GetString("license")
	if in.License, err = types.ParseLicense(raw); err != nil {
		return in, err
	}
	if path, _ := cmd.Flags().GetString("image"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return in, fmt.Errorf("read image: %w", err)
		}
		in.ImageBase64 = base64.StdEncoding.EncodeToString(data)
	}
	return in, nil
}

func printWorks(out io.Writer, store *projection.Store) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tTITLE\tCATEGORY\tLICENSE\tSTATUS\tAUTHOR\tTAGS")
	for _, work := range store.Works() {
		fav := ""
		if store.IsFavorite(work.ID) {
			fav = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			fav, work.ID, work.Title, work.Category, work.License, work.Status,
			work.AuthorName, strings.Join(work.Tags, ","))
	}
	return w.Flush()
}

func init() {
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("name", "", "display name")
	registerCmd.Flags().String("password", "", "optional password")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("name")

	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "password, if the account has one")
	_ = loginCmd.MarkFlagRequired("email")

	profileCmd.Flags().String("name", "", "new display name")
	profileCmd.Flags().String("bio", "", "new bio")
	profileCmd.Flags().String("avatar", "", "new avatar URL")

	worksListCmd.Flags().String("status", "", "pending, approved or rejected")
	worksListCmd.Flags().String("category", "", "vectors, photos, icons, psd, ai or templates")
	worksListCmd.Flags().String("author", "", "author id")

	worksSubmitCmd.Flags().String("title", "", "work title")
	worksSubmitCmd.Flags().String("description", "", "work description")
	worksSubmitCmd.Flags().String("category", "", "vectors, photos, icons, psd, ai or templates")
	worksSubmitCmd.Flags().String("license", "free", "free, personal or commercial")
	worksSubmitCmd.Flags().StringSlice("tags", nil, "comma separated tags")
	worksSubmitCmd.Flags().String("image", "", "path to a JPEG preview")
	_ = worksSubmitCmd.MarkFlagRequired("title")
	_ = worksSubmitCmd.MarkFlagRequired("category")

	worksCmd.AddCommand(
		worksListCmd,
		worksSubmitCmd,
		moderateCmd("approve", types.StatusApproved),
		moderateCmd("reject", types.StatusRejected),
		worksDeleteCmd,
	)
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd, profileCmd, worksCmd, favCmd, stateCmd)
}
