// Package cli описывает команды бинарника guestmart.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fsdevblog/guestmart/internal/config"
	"github.com/fsdevblog/guestmart/internal/logger"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// runtime общее состояние команд, заполняется в PersistentPreRunE корневой команды.
type runtime struct {
	flags   config.Config
	envFile string
	out     io.Writer
	conf    *config.Config
	logger  *logrus.Logger
}

// NewRootCommand создает корневую команду. Логи пишутся в out.
func NewRootCommand(out io.Writer) *cobra.Command {
	rt := &runtime{out: out}

	cmd := &cobra.Command{
		Use:           "guestmart",
		Short:         "Guest post marketplace server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return rt.init()
		},
	}

	cmd.PersistentFlags().StringVar(&rt.envFile, "env-file", ".env", "Path to a .env file, ignored when missing")
	config.BindFlags(cmd.PersistentFlags(), &rt.flags)

	cmd.AddCommand(newServeCommand(rt))
	cmd.AddCommand(newMigrateCommand(rt))
	cmd.AddCommand(newSweepCommand(rt))

	return cmd
}

func (rt *runtime) init() error {
	// переменные окружения процесса имеют приоритет над .env.
	if err := godotenv.Load(rt.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", rt.envFile, err)
	}

	conf, err := config.Load(&rt.flags)
	if err != nil {
		return err //nolint:wrapcheck
	}
	rt.conf = conf
	rt.logger = logger.New(rt.out, conf.LogLevel)
	return nil
}

// Execute запускает корневую команду с аргументами процесса.
func Execute() error {
	return NewRootCommand(os.Stdout).Execute() //nolint:wrapcheck
}
