package backend

import (
	"fmt"

	"struk/internal/config"
	"struk/internal/session"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	remote := RemoteType(appConfig.Remote)
	if !remote.IsValid() {
		return Config{}, fmt.Errorf("invalid remote type in config: %s", appConfig.Remote)
	}

	return Config{
		DBPath:    appConfig.DBPath,
		Remote:    remote,
		RemoteDir: appConfig.RemoteDir,
		Session: session.Options{
			ClientJSON:  appConfig.GoogleOAuthClientJSON,
			ClientFile:  appConfig.GoogleOAuthClientFile,
			TokenFile:   appConfig.GoogleOAuthTokenFile,
			RedirectURL: appConfig.GoogleRedirectURL,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	if !c.Remote.IsValid() {
		return fmt.Errorf("invalid remote type: %s", c.Remote)
	}
	if c.Remote == FileRemote && c.RemoteDir == "" {
		return fmt.Errorf("a directory is required for the file remote")
	}
	return nil
}

// RemoteTypes returns all valid remote types
func RemoteTypes() []RemoteType {
	return []RemoteType{GoogleRemote, FileRemote, MemoryRemote, NoRemote}
}
