package main

import (
	"crypto/rand"
	"encoding/json"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/bobinette/pressroom"
)

func init() {
	UserCreateCommand.Flags().String("password", "", "initial password")

	UserCommand.AddCommand(&UserCreateCommand)
	UserCommand.AddCommand(&UserAllCommand)
	RootCmd.AddCommand(&UserCommand)
}

var UserCommand = cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long:  "Manage users",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var UserCreateCommand = cobra.Command{
	Use:   "create <email> <name>",
	Short: "Create a user",
	Long:  "Create a user",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			logger.Fatal("create wants 2 arguments: the user's email and name")
		}

		password := cmd.Flag("password").Value.String()
		if password == "" {
			logger.Fatal("--password is required")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal("could not hash password:", err)
		}

		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logger.Fatal("could not generate keyring secret:", err)
		}

		user := pressroom.User{
			Email:         args[0],
			Name:          args[1],
			PasswordHash:  hash,
			KeyringSecret: secret,
		}
		if err := userStore.Upsert(&user); err != nil {
			logger.Fatal("could not save user:", err)
		}

		data, err := json.Marshal(user)
		if err != nil {
			logger.Fatal(err)
		}
		cmd.Println(string(data))
	},
}

var UserAllCommand = cobra.Command{
	Use:   "all",
	Short: "List all users",
	Long:  "List all users",
	Run: func(cmd *cobra.Command, args []string) {
		users, err := userStore.List()
		if err != nil {
			logger.Fatal("could not list users:", err)
		}

		for _, user := range users {
			data, err := json.Marshal(user)
			if err != nil {
				logger.Fatal(err)
			}
			cmd.Println(string(data))
		}
	},
}
