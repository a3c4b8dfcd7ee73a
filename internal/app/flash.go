package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/uber/nanoscope/internal/rom"
	"github.com/uber/nanoscope/internal/version"
)

// Flash downloads the ROM package (or reuses a verified cached copy),
// runs its install script against the connected device, and confirms
// the installed ROM version is one this client supports.
func (a *App) Flash(ctx context.Context) error {
	cache, err := rom.OpenCache(a.cfg.CacheDir(), a.logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	if a.cfg.CachePruneSchedule != "" {
		janitor, err := rom.NewJanitor(cache, a.cfg.CachePruneSchedule, a.cfg.CacheTTL, a.logger)
		if err != nil {
			return err
		}
		janitor.Start()
		defer janitor.Stop()
	}

	installer := rom.NewInstaller(cache, nil, a.logger)
	status, err := installer.Install(ctx, a.cfg.RomURL)
	if err != nil {
		return err
	}
	if status != 0 {
		return fmt.Errorf("install script exited with status %d", status)
	}

	romVersion, err := a.shell.GetProp(ctx, version.PropVersion)
	if err != nil {
		return err
	}
	if err := version.Check(romVersion); err != nil {
		return err
	}

	a.logger.Info("ROM flashed",
		zap.String("rom_version", romVersion),
		zap.String("client_version", version.Client))
	return nil
}
