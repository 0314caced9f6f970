package main

import (
	"fmt"
	"os"
	"path"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/bobinette/pressroom"
	"github.com/bobinette/pressroom/bolt"
	"github.com/bobinette/pressroom/collection"
	"github.com/bobinette/pressroom/content"
	"github.com/bobinette/pressroom/keyring"
	"github.com/bobinette/pressroom/log"
	"github.com/bobinette/pressroom/mock"
)

type Configuration struct {
	Bolt struct {
		Store string `toml:"store"`
	} `toml:"bolt"`
	Content struct {
		Published   string `toml:"published"`
		Collections string `toml:"collections"`
	} `toml:"content"`
	Keyring struct {
		Sweep string `toml:"sweep"`
	} `toml:"keyring"`
	Permissions struct {
		Editors        []string `toml:"editors"`
		Viewers        []string `toml:"viewers"`
		Administrators []string `toml:"administrators"`
	} `toml:"permissions"`
}

var (
	// flags
	env        string
	configFile string
	email      string

	// logger
	logger log.Logger

	// drivers
	boltDriver *bolt.Driver

	// stores
	userStore    *bolt.UserStore
	keyringStore *bolt.KeyringStore
	published    *content.Store

	// services
	sessions *mock.Sessions
	cache    *keyring.Cache
	keys     *keyring.Service
	registry *collection.Registry
)

func init() {
	RootCmd.PersistentFlags().StringVar(&env, "env", "dev", "environment")
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file")
	RootCmd.PersistentFlags().StringVar(&email, "email", "", "email of the operating user")
}

var RootCmd = cobra.Command{
	Use:   "pressroom",
	Short: "Stage, review and publish web content in collections",
	Long:  "Stage, review and publish web content in collections",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = log.New(env)

		if configFile == "" {
			configFile = path.Join("configuration", fmt.Sprintf("config.%s.toml", env))
		}
		cfgData, err := os.ReadFile(configFile)
		if err != nil {
			logger.Fatal("could not read configuration file:", err)
		}
		var cfg Configuration
		if err := toml.Unmarshal(cfgData, &cfg); err != nil {
			logger.Fatal("error unmarshalling configuration:", err)
		}

		// Create stores
		boltDriver = &bolt.Driver{}
		if err := boltDriver.Open(cfg.Bolt.Store); err != nil {
			logger.Fatal("could not open bolt store:", err)
		}
		userStore = &bolt.UserStore{Driver: boltDriver}
		keyringStore = &bolt.KeyringStore{Driver: boltDriver}

		for _, dir := range []string{cfg.Content.Published, cfg.Content.Collections} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				logger.Fatal("could not create content folder:", err)
			}
		}
		published, err = content.NewStore(cfg.Content.Published, nil)
		if err != nil {
			logger.Fatal("could not open published store:", err)
		}

		// Create services
		permissions := mock.NewPermissions()
		for _, e := range cfg.Permissions.Editors {
			permissions.AddEditor(e)
		}
		for _, v := range cfg.Permissions.Viewers {
			permissions.AddViewer(v)
		}
		for _, a := range cfg.Permissions.Administrators {
			permissions.AddAdministrator(a)
		}

		sessions = mock.NewSessions()
		cache = keyring.NewCache(sessions)
		if cfg.Keyring.Sweep != "" {
			if err := cache.StartSweep(cfg.Keyring.Sweep, logger); err != nil {
				logger.Fatal("could not start keyring sweep:", err)
			}
		}
		keys = keyring.NewService(userStore, permissions, sessions, keyringStore, cache, logger)

		publisher := &collection.TransferPublisher{Published: published, Logger: logger}
		registry = collection.NewRegistry(
			cfg.Content.Collections,
			collection.NewLockRegistry(),
			permissions,
			published,
			publisher,
			log.NewAudit(logger),
			keys,
			logger,
		)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cache.Stop()
		boltDriver.Close()
	},
}

// login opens a session for the --email user and unlocks their persisted
// keyring into the session cache, the way the authentication layer would.
func login() *pressroom.Session {
	if email == "" {
		logger.Fatal("--email is required")
	}

	session := sessions.Login(email)

	sealed, err := keyringStore.Get(email)
	if err != nil {
		logger.Fatal("could not load keyring:", err)
	}
	if sealed == nil {
		return session
	}
	user, err := userStore.Get(email)
	if err != nil || user == nil {
		logger.Fatal("unknown user: ", email)
	}
	kr, err := sealed.Unlock(user.KeyringSecret)
	if err != nil {
		logger.Fatal("could not unlock keyring:", err)
	}
	cache.Put(session, kr)
	return session
}
