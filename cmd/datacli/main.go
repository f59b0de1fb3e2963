package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/artifact/local"
)

const usageText = `datacli - inspect and edit a pipegridgo artifact store on disk.

Usage:
  datacli <command> [options]

Commands:
  list    --prefix=<p>               List fully-qualified dataset names under a prefix.
  gets    --name=<prefix/name>       Write a payload to stdout.
  puts    --name=<prefix/name>       Store stdin as a payload.
  get     --name=<...> --file=<f>    Write a payload to a file.
  put     --name=<...> --file=<f>    Store a file as a payload.
  exists  --name=<prefix/name>       Exit 0 when the dataset is stored, 1 when not.
  size    --name=<prefix/name>       Print the payload size in bytes.

The store root comes from --data-dir, or the PIPEGRID_DATA_DIR environment
variable when the flag is absent.
`

func main() {
	os.Exit(run(context.Background(), os.Stdin, os.Stdout, os.Stderr, os.Args[1:]))
}

// run dispatches one subcommand and returns the process exit code: 0 on
// success, 1 when the store disagrees (missing dataset, duplicate key, empty
// listing), 2 on bad invocations.
func run(ctx context.Context, in io.Reader, out, errW io.Writer, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(errW, usageText)
		return 2
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		fmt.Fprint(out, usageText)
		return 0
	case "list", "gets", "puts", "get", "put", "exists", "size":
		// dispatched below
	default:
		fmt.Fprintf(errW, "unknown command %q\n\n", cmd)
		fmt.Fprint(errW, usageText)
		return 2
	}

	fs := flag.NewFlagSet("datacli "+cmd, flag.ContinueOnError)
	fs.SetOutput(errW)
	dataDir := fs.String("data-dir", defaultDataDir(), "Store root directory.")
	prefix := fs.String("prefix", "", "Dataset prefix.")
	name := fs.String("name", "", "Fully-qualified dataset name (prefix/name).")
	file := fs.String("file", "", "Payload file path.")
	encoding := fs.String("encoding", "opaque", "Payload encoding tag: 'opaque', 'json', or 'csv'.")

	if err := fs.Parse(rest); err != nil {
		return 2
	}

	store, err := local.New(*dataDir)
	if err != nil {
		fmt.Fprintln(errW, err)
		return 1
	}
	defer store.Close()

	switch cmd {
	case "list":
		return cmdList(ctx, store, *prefix, out, errW)
	case "gets":
		return cmdGet(ctx, store, *name, out, errW)
	case "puts":
		return cmdPut(ctx, store, *name, *encoding, in, out, errW)
	case "get":
		if *file == "" {
			fmt.Fprintln(errW, "--file is required")
			return 2
		}
		f, err := os.Create(*file)
		if err != nil {
			fmt.Fprintln(errW, err)
			return 1
		}
		defer f.Close()
		return cmdGet(ctx, store, *name, f, errW)
	case "put":
		if *file == "" {
			fmt.Fprintln(errW, "--file is required")
			return 2
		}
		f, err := os.Open(*file)
		if err != nil {
			fmt.Fprintln(errW, err)
			return 1
		}
		defer f.Close()
		return cmdPut(ctx, store, *name, *encoding, f, out, errW)
	case "exists":
		return cmdExists(ctx, store, *name, errW)
	default: // "size"
		return cmdSize(ctx, store, *name, out, errW)
	}
}

// cmdList prints the fully-qualified name of every dataset directly under
// the prefix, one per line. An empty listing is reported through the exit
// code so shell callers can branch on it.
func cmdList(ctx context.Context, store artifact.Store, prefix string, out, errW io.Writer) int {
	names, err := store.List(ctx, prefix)
	if err != nil {
		fmt.Fprintln(errW, err)
		return 1
	}
	if len(names) == 0 {
		return 1
	}

	cleaned := artifact.CleanPrefix(prefix)
	for _, n := range names {
		fmt.Fprintln(out, artifact.Ref{Prefix: cleaned, Name: n}.String())
	}
	return 0
}

// cmdGet writes the payload stored under name to out, byte for byte.
func cmdGet(ctx context.Context, store artifact.Store, name string, out, errW io.Writer) int {
	ref, ok := parseName(name, errW)
	if !ok {
		return 2
	}

	payload, _, err := store.Get(ctx, ref)
	if err != nil {
		fmt.Fprintln(errW, err)
		return 1
	}
	if _, err := out.Write(payload); err != nil {
		fmt.Fprintln(errW, err)
		return 1
	}
	return 0
}

// cmdPut stores everything read from in under name and echoes the canonical
// fully-qualified name.
func cmdPut(ctx context.Context, store artifact.Store, name, encoding string, in io.Reader, out, errW io.Writer) int {
	ref, ok := parseName(name, errW)
	if !ok {
		return 2
	}
	enc, ok := parseEncoding(encoding, errW)
	if !ok {
		return 2
	}

	payload, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintln(errW, err)
		return 1
	}

	stored, err := store.Put(ctx, ref, payload, enc)
	if err != nil {
		fmt.Fprintln(errW, err)
		return 1
	}
	fmt.Fprintln(out, stored.String())
	return 0
}

func cmdExists(ctx context.Context, store artifact.Store, name string, errW io.Writer) int {
	ref, ok := parseName(name, errW)
	if !ok {
		return 2
	}

	found, err := store.Exists(ctx, ref)
	if err != nil {
		fmt.Fprintln(errW, err)
		return 1
	}
	if !found {
		return 1
	}
	return 0
}

func cmdSize(ctx context.Context, store artifact.Store, name string, out, errW io.Writer) int {
	ref, ok := parseName(name, errW)
	if !ok {
		return 2
	}

	size, err := store.Size(ctx, ref)
	if err != nil {
		fmt.Fprintln(errW, err)
		return 1
	}
	fmt.Fprintln(out, size)
	return 0
}

func parseName(name string, errW io.Writer) (artifact.Ref, bool) {
	if name == "" {
		fmt.Fprintln(errW, "--name is required")
		return artifact.Ref{}, false
	}
	ref, err := artifact.ParseRef(name)
	if err != nil {
		fmt.Fprintln(errW, err)
		return artifact.Ref{}, false
	}
	return ref, true
}

func parseEncoding(encoding string, errW io.Writer) (artifact.Encoding, bool) {
	switch enc := artifact.Encoding(encoding); enc {
	case artifact.EncodingOpaque, artifact.EncodingJSON, artifact.EncodingCSV:
		return enc, true
	default:
		fmt.Fprintf(errW, "invalid encoding %q: must be 'opaque', 'json', or 'csv'\n", encoding)
		return "", false
	}
}

// defaultDataDir resolves the store root: the PIPEGRID_DATA_DIR environment
// variable when set, otherwise a dotted directory in the working directory.
func defaultDataDir() string {
	if dir := os.Getenv("PIPEGRID_DATA_DIR"); dir != "" {
		return dir
	}
	return ".pipegrid"
}
