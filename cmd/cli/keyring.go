package main

import (
	"github.com/spf13/cobra"
)

func init() {
	KeyringCommand.AddCommand(&KeyringDistributeCommand)
	KeyringCommand.AddCommand(&KeyringSweepCommand)
	RootCmd.AddCommand(&KeyringCommand)
}

var KeyringCommand = cobra.Command{
	Use:   "keyring",
	Short: "Manage collection keys",
	Long:  "Manage collection keys",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var KeyringDistributeCommand = cobra.Command{
	Use:   "distribute <collection>",
	Short: "Distribute the collection key to everyone allowed to view it",
	Long:  "Distribute the collection key to everyone allowed to view it",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			logger.Fatal("distribute wants 1 argument: the collection id or slug")
		}

		session := login()
		c, err := registry.Open(session, args[0])
		if err != nil {
			logger.Fatal(err)
		}
		if err := registry.DistributeKey(session, c); err != nil {
			logger.Fatal(err)
		}
		logger.Printf("key for collection %s distributed", c.Description.ID)
	},
}

var KeyringSweepCommand = cobra.Command{
	Use:   "sweep",
	Short: "Evict cached keyrings whose session is gone",
	Long:  "Evict cached keyrings whose session is gone",
	Run: func(cmd *cobra.Command, args []string) {
		evicted := cache.Sweep()
		logger.Printf("%d keyrings evicted", evicted)
	},
}
