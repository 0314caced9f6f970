package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	CollectionCreateCommand.Flags().String("publish-date", "", "scheduled publish date, RFC 3339")
	CollectionCreateCommand.Flags().Bool("encrypted", false, "encrypt the collection's content at rest")
	CollectionPublishCommand.Flags().Bool("skip-verification", false, "skip the post-transfer verification pass")

	CollectionCommand.AddCommand(&CollectionCreateCommand)
	CollectionCommand.AddCommand(&CollectionListCommand)
	CollectionCommand.AddCommand(&CollectionApproveCommand)
	CollectionCommand.AddCommand(&CollectionUnlockCommand)
	CollectionCommand.AddCommand(&CollectionPublishCommand)
	CollectionCommand.AddCommand(&CollectionDeleteCommand)
	RootCmd.AddCommand(&CollectionCommand)
}

var CollectionCommand = cobra.Command{
	Use:   "collection",
	Short: "Manage collections",
	Long:  "Manage collections",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var CollectionCreateCommand = cobra.Command{
	Use:   "create <name>",
	Short: "Create a collection",
	Long:  "Create a collection",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			logger.Fatal("create wants 1 argument: the collection name")
		}

		publishDate := time.Now()
		if raw := cmd.Flag("publish-date").Value.String(); raw != "" {
			var err error
			publishDate, err = time.Parse(time.RFC3339, raw)
			if err != nil {
				logger.Fatal("could not parse publish date:", err)
			}
		}
		encrypted := cmd.Flag("encrypted").Value.String() == "true"

		c, err := registry.Create(login(), args[0], publishDate, encrypted)
		if err != nil {
			logger.Fatal(err)
		}

		data, err := json.Marshal(c.Description)
		if err != nil {
			logger.Fatal(err)
		}
		cmd.Println(string(data))
	},
}

var CollectionListCommand = cobra.Command{
	Use:   "all",
	Short: "List all collections",
	Long:  "List all collections",
	Run: func(cmd *cobra.Command, args []string) {
		descriptions, err := registry.List()
		if err != nil {
			logger.Fatal(err)
		}

		for _, desc := range descriptions {
			data, err := json.Marshal(desc)
			if err != nil {
				logger.Fatal(err)
			}
			cmd.Println(string(data))
		}
	},
}

var CollectionApproveCommand = cobra.Command{
	Use:   "approve <collection>",
	Short: "Approve a collection for publishing",
	Long:  "Approve a collection for publishing",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			logger.Fatal("approve wants 1 argument: the collection id or slug")
		}

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		if err := registry.Approve(session, c); err != nil {
			logger.Fatal(err)
		}
		logger.Printf("collection %s approved", c.Description.ID)
	},
}

var CollectionUnlockCommand = cobra.Command{
	Use:   "unlock <collection>",
	Short: "Reopen an approved collection for editing",
	Long:  "Reopen an approved collection for editing",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			logger.Fatal("unlock wants 1 argument: the collection id or slug")
		}

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		if _, err := registry.Unlock(session, c); err != nil {
			logger.Fatal(err)
		}
		logger.Printf("collection %s unlocked", c.Description.ID)
	},
}

var CollectionPublishCommand = cobra.Command{
	Use:   "publish <collection>",
	Short: "Publish an approved collection",
	Long:  "Publish an approved collection",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			logger.Fatal("publish wants 1 argument: the collection id or slug")
		}
		skipVerification := cmd.Flag("skip-verification").Value.String() == "true"

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		ok, err := registry.Publish(session, c, false, skipVerification)
		if err != nil {
			logger.Fatal(err)
		}
		if !ok {
			logger.Fatal("publisher refused collection ", c.Description.ID)
		}
		logger.Printf("collection %s published", c.Description.ID)
	},
}

var CollectionDeleteCommand = cobra.Command{
	Use:   "delete <collection>",
	Short: "Delete an empty collection",
	Long:  "Delete an empty collection",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			logger.Fatal("delete wants 1 argument: the collection id or slug")
		}

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		if err := registry.Delete(session, c); err != nil {
			logger.Fatal(err)
		}
		logger.Printf("collection %s deleted", c.Description.ID)
	},
}
