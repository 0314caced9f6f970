package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	ContentWriteCommand.Flags().String("file", "", "read the content from this file instead of the argument")

	ContentCommand.AddCommand(&ContentCreateCommand)
	ContentCommand.AddCommand(&ContentWriteCommand)
	ContentCommand.AddCommand(&ContentGetCommand)
	ContentCommand.AddCommand(&ContentCompleteCommand)
	ContentCommand.AddCommand(&ContentReviewCommand)
	ContentCommand.AddCommand(&ContentDeleteCommand)
	ContentCommand.AddCommand(&ContentListCommand)
	RootCmd.AddCommand(&ContentCommand)
}

var ContentCommand = cobra.Command{
	Use:   "content",
	Short: "Work on the content of a collection",
	Long:  "Work on the content of a collection",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var ContentCreateCommand = cobra.Command{
	Use:   "create <collection> <uri> [json]",
	Short: "Start brand-new content in a collection",
	Long:  "Start brand-new content in a collection",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			logger.Fatal("create wants a collection and a uri")
		}

		var data []byte
		if len(args) > 2 {
			data = []byte(args[2])
		}

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		if err := registry.CreateContent(session, c, args[1], data); err != nil {
			logger.Fatal(err)
		}
		logger.Printf("%s created in collection %s", args[1], c.Description.ID)
	},
}

var ContentWriteCommand = cobra.Command{
	Use:   "write <collection> <uri> [json]",
	Short: "Edit content, bringing it in progress",
	Long:  "Edit content, bringing it in progress",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			logger.Fatal("write wants a collection and a uri")
		}

		var data []byte
		if file := cmd.Flag("file").Value.String(); file != "" {
			var err error
			if data, err = os.ReadFile(file); err != nil {
				logger.Fatal("could not read content file:", err)
			}
		} else if len(args) > 2 {
			data = []byte(args[2])
		} else {
			logger.Fatal("write wants the content as an argument or through --file")
		}

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		if err := registry.WriteContent(session, c, args[1], data); err != nil {
			logger.Fatal(err)
		}
		logger.Printf("%s written in collection %s", args[1], c.Description.ID)
	},
}

var ContentGetCommand = cobra.Command{
	Use:   "get <collection> <uri>",
	Short: "Read content through the stage fallback",
	Long:  "Read content through the stage fallback: in-progress, complete, reviewed, then published",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			logger.Fatal("get wants a collection and a uri")
		}

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		data, err := registry.ReadContent(session, c, args[1])
		if err != nil {
			logger.Fatal(err)
		}
		cmd.Println(string(data))
	},
}

var ContentCompleteCommand = cobra.Command{
	Use:   "complete <collection> <uri>",
	Short: "Mark content ready for review",
	Long:  "Mark content ready for review",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			logger.Fatal("complete wants a collection and a uri")
		}

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		if err := registry.CompleteContent(session, c, args[1]); err != nil {
			logger.Fatal(err)
		}
		logger.Printf("%s completed", args[1])
	},
}

var ContentReviewCommand = cobra.Command{
	Use:   "review <collection> <uri>",
	Short: "Sign completed content off",
	Long:  "Sign completed content off",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			logger.Fatal("review wants a collection and a uri")
		}

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		if err := registry.ReviewContent(session, c, args[1]); err != nil {
			logger.Fatal(err)
		}
		logger.Printf("%s reviewed", args[1])
	},
}

var ContentDeleteCommand = cobra.Command{
	Use:   "delete <collection> <uri>",
	Short: "Remove content from a collection",
	Long:  "Remove content from a collection",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			logger.Fatal("delete wants a collection and a uri")
		}

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		if err := registry.DeleteContent(session, c, args[1]); err != nil {
			logger.Fatal(err)
		}
		logger.Printf("%s deleted from collection %s", args[1], c.Description.ID)
	},
}

var ContentListCommand = cobra.Command{
	Use:   "ls <collection> <uri>",
	Short: "List a directory, collection content overlaid on published",
	Long:  "List a directory, collection content overlaid on published",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			logger.Fatal("ls wants a collection and a uri")
		}

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		entries, err := registry.ListDirectoryOverlayed(session, c, args[1])
		if err != nil {
			logger.Fatal(err)
		}
		for _, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				logger.Fatal(err)
			}
			cmd.Println(string(data))
		}
	},
}
