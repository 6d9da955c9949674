package cmd

import (
	"fmt"

	"go.uber.org/dig"

	"github.com/forksync/forksync/application"
	"github.com/forksync/forksync/config"
	providerPkg "github.com/forksync/forksync/infrastructure/provider"
	ghProv "github.com/forksync/forksync/infrastructure/provider/github"
	glProv "github.com/forksync/forksync/infrastructure/provider/gitlab"
)

// buildContainer wires config, registries and the service together.
func buildContainer() (*dig.Container, error) {
	container := dig.New()

	constructors := []any{
		loadConfig,
		buildProviderRegistry,
		application.NewSyncService,
	}
	for _, c := range constructors {
		if err := container.Provide(c); err != nil {
			return nil, fmt.Errorf("failed to wire dependencies: %w", err)
		}
	}
	return container, nil
}

// loadConfig resolves the configuration path (flag first, then standard
// locations) and loads it.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.FindConfigFile()
		if err != nil {
			return nil, fmt.Errorf(
				"no config file found: %w\nSpecify one with --config or create forksync.yaml",
				err,
			)
		}
	}
	return config.Load(path)
}

func buildProviderRegistry() *providerPkg.Registry {
	reg := providerPkg.NewRegistry()
	reg.Register("github", ghProv.New)
	reg.Register("gitlab", glProv.New)
	return reg
}
