package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/accounts"
)

func createRtCmd() *cobra.Command {
	var in accounts.RtInput
	var address, admin, password string
	cmd := &cobra.Command{
		Use:   "create-rt",
		Short: "Register an RT with its first admin account",
		Example: `  rtctl create-rt --rt 06 --rw 01 --village Sukamaju --subdistrict Cibinong \
    --city Bogor --province "Jawa Barat" --admin admin06 --password rahasia`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := openDB()
			if err != nil {
				return err
			}
			if address != "" {
				in.AddressDetail = &address
			}
			var rt *models.Rt
			var user *models.User
			err = gdb.WithContext(cmd.Context()).Transaction(func(tx *gorm.DB) error {
				var err error
				rt, user, err = accounts.CreateRt(cmd.Context(), tx, in, admin, password)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s rt_id=%s admin=%s user_id=%s\n", rt.RtRw(), rt.RtID, user.Username, user.UserID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.RtNumber, "rt", "", "RT number")
	f.StringVar(&in.RwNumber, "rw", "", "RW number")
	f.StringVar(&in.VillageName, "village", "", "village (kelurahan/desa)")
	f.StringVar(&in.SubdistrictName, "subdistrict", "", "subdistrict (kecamatan)")
	f.StringVar(&in.CityName, "city", "", "city or regency")
	f.StringVar(&in.ProvinceName, "province", "", "province")
	f.StringVar(&address, "address", "", "optional address detail")
	f.StringVar(&admin, "admin", "", "username of the first admin")
	f.StringVar(&password, "password", "", "password of the first admin (min 6 chars)")
	for _, name := range []string{"rt", "rw", "village", "subdistrict", "city", "province", "admin", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func createUserCmd() *cobra.Command {
	var rtFlag, role, email, by string
	cmd := &cobra.Command{
		Use:   "create-user <username> <password>",
		Short: "Add an account to an RT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rtID, err := uuid.Parse(rtFlag)
			if err != nil {
				return fmt.Errorf("--rt: %w", err)
			}
			gdb, err := openDB()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			in := accounts.UserInput{Username: args[0], Password: args[1], Role: strings.ToUpper(role)}
			if email != "" {
				in.Email = &email
			}
			var user *models.User
			err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				// the account is recorded as created by an admin of the RT
				var actor models.User
				q := tx.Where("rt_id = ? AND role = ?", rtID, models.RoleAdmin)
				if by != "" {
					q = q.Where("username = ?", by)
				}
				if err := q.Order("created_at").First(&actor).Error; err != nil {
					return fmt.Errorf("no admin found in rt %s: %w", rtID, err)
				}
				var err error
				user, err = accounts.CreateUser(ctx, tx, rtID, actor.UserID, in)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s role=%s id=%s\n", user.Username, user.Role, user.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&rtFlag, "rt", "", "RT id the account belongs to")
	cmd.Flags().StringVar(&role, "role", models.RoleWarga, "ADMIN or WARGA")
	cmd.Flags().StringVar(&email, "email", "", "email used for password reset links")
	cmd.Flags().StringVar(&by, "by", "", "admin username recorded as creator (default: first admin)")
	_ = cmd.MarkFlagRequired("rt")
	return cmd
}

func resetPasswordCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := openDB()
			if err != nil {
				return err
			}
			var user models.User
			if err := gdb.WithContext(cmd.Context()).Where("username = ?", username).First(&user).Error; err != nil {
				return fmt.Errorf("user not found: %w", err)
			}
			if err := accounts.SetPassword(cmd.Context(), gdb, user.UserID, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password reset for user %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username to reset")
	cmd.Flags().StringVar(&password, "password", "", "new plaintext password (min 6 chars)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
