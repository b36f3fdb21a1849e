/*
Package runner implements the interactive loop that drives a calculator session.

It is the bridge between the engine and the outside world: it reads input
through a pluggable IOHandler, turns it into commands, dispatches them in
order and presents the resulting state.

# Key Components

  - Runner: The read-dispatch-print loop, with optional session persistence.
  - IOHandler: Decouples how commands arrive and results leave (text, JSON).
  - TextHandler: Line-oriented REPL for terminals and pipes.
  - JSONHandler: NDJSON commands in, NDJSON states out, for scripting.
  - ParseLine: Maps a typed line to keys and command words.
  - SanitizeInput: Size, UTF-8 and control-character policy shared by every adapter.

# Usage

	r := runner.NewRunner(
		runner.WithEngine(tally.New()),
		runner.WithSessionID("user-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
