package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rcliao/persona-extended/internal/blocks"
	"github.com/rcliao/persona-extended/internal/host"
	"github.com/rcliao/persona-extended/internal/patch"
)

var errNoPersona = errors.New("no persona selected (run: pme persona use <avatar>)")

// app wires the host, the block store and the patch controller for one
// command invocation.
type app struct {
	store  *host.SQLiteStore
	host   *host.Host
	saver  *host.Saver
	blocks *blocks.Store
	ctrl   *patch.Controller
	log    *zap.Logger
}

func openApp(ctx context.Context) (*app, error) {
	log, err := newLogger(viper.GetString("log.level"), viper.GetString("log.format"))
	if err != nil {
		return nil, err
	}
	s, err := host.NewSQLiteStore(viper.GetString("db"))
	if err != nil {
		return nil, err
	}
	h, err := host.Open(ctx, s, host.WithLogger(log))
	if err != nil {
		s.Close()
		return nil, err
	}

	saver := host.NewSaver(h.Save, viper.GetDuration("save.debounce"), log)
	ctrl := patch.New(h,
		patch.WithRestoreTimeout(viper.GetDuration("patch.restore_timeout")),
		patch.WithHostLocker(h.Locker()),
		patch.WithLogger(log))
	ctrl.Bind(h.Bus())
	h.SetLiveGuard(ctrl)

	return &app{
		store:  s,
		host:   h,
		saver:  saver,
		blocks: blocks.New(h, saver, blocks.WithLogger(log)),
		ctrl:   ctrl,
		log:    log,
	}, nil
}

// mustOpen opens the app or exits.
func mustOpen(cmd *cobra.Command) *app {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	return a
}

// update runs fn under the host lock and schedules a save.
func (a *app) update(fn func()) {
	a.host.Update(fn)
	a.saver.Schedule()
}

// requirePersona exits unless a persona is selected.
func (a *app) requirePersona() {
	if a.host.CurrentAvatar() == "" {
		exitErr("persona", errNoPersona)
	}
}

// close restores any live patch, writes pending changes and releases the
// database.
func (a *app) close(ctx context.Context) {
	a.ctrl.Close()
	err := a.saver.Flush(ctx)
	a.store.Close()
	_ = a.log.Sync()
	if err != nil {
		exitErr("save", err)
	}
}
