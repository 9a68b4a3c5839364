package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/profilesite/internal/session"
)

var renderLazy bool

var renderCmd = &cobra.Command{
	Use:   "render <key>",
	Short: "Print the markup of a view",
	Long: `Loads a view the way a viewer would and prints the mount area.
Every block is materialized unless --lazy is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&renderLazy, "lazy", false, "leave blocks as placeholders")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	sess := a.sessions.Create()
	defer a.sessions.Remove(sess.ID())

	gen, err := a.loader.Load(context.Background(), sess, args[0])
	if err != nil && !errors.Is(err, session.ErrStale) {
		fmt.Fprintln(cmd.OutOrStdout(), sess.HTML())
		return err
	}
	if !renderLazy {
		if _, err := sess.MaterializeAll(gen); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), sess.HTML())
	return nil
}
