package cli

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"

	"github.com/robinvdvleuten/stockcard/store"
)

// DoctorCmd provides doctor utilities for debugging books and stock cards.
type DoctorCmd struct {
	Dump DumpCmd `cmd:"" help:"Dump the loaded book or a stock card as Go values."`
}

// DumpCmd prints the data structures the other commands work on.
type DumpCmd struct {
	Card string `help:"Stock card id (the whole book when omitted)." arg:"" optional:""`
}

// Run executes the dump command.
func (cmd *DumpCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx := context.Background()

	a, err := openApp(runCtx, ctx, globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	printer := repr.New(ctx.Stdout, repr.Indent("  "), repr.OmitEmpty(true))

	if cmd.Card != "" {
		card, err := a.backend.Card(runCtx, cmd.Card)
		if err != nil {
			return err
		}
		printer.Println(card)
		return nil
	}

	// File books are dumped as loaded, including the list of files.
	if fs, ok := a.backend.(*store.FileStore); ok {
		result, err := fs.Result(runCtx)
		if err != nil {
			return err
		}
		printer.Println(result.Files())
		printer.Println(result.Book)
		return nil
	}

	cards, err := a.backend.Cards(runCtx)
	if err != nil {
		return err
	}
	printer.Println(cards)
	return nil
}
