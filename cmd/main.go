// Portions Copyright (c) Microsoft Corporation.

/*
Copyright 2023.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"k8s.io/klog/v2"

	"jsoncfg/tool/internal/document"
	"jsoncfg/tool/internal/jsonc"
	"jsoncfg/tool/internal/processor"
	"jsoncfg/tool/internal/properties"
)

const usage = `Usage:
  %[1]s strip [flags] [file or glob ...]   strip comments, stdin to stdout without arguments
  %[1]s set [flags] <file> key=value ...   edit a JSONC config file by key path
  %[1]s version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, properties.ModuleName)
		os.Exit(2)
	}

	var err error
	switch command := os.Args[1]; command {
	case "strip":
		err = runStrip(os.Args[2:], os.Stdin, os.Stdout)
	case "set":
		err = runSet(os.Args[2:], os.Stdout)
	case "version", "-version", "--version":
		fmt.Println(properties.UserAgent())
		return
	default:
		fmt.Fprintf(os.Stderr, usage, properties.ModuleName)
		os.Exit(2)
	}

	klog.Flush()
	if code := exitCode(err); code != 0 {
		klog.ErrorS(err, "Command failed", "command", os.Args[1])
		klog.Flush()
		os.Exit(code)
	}
}

// exitCode maps a command error to the process exit status; asking for help
// is not a failure.
func exitCode(err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 1
}

func runStrip(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("strip", flag.ContinueOnError)
	klog.InitFlags(fs)
	whitespace := fs.Bool("whitespace", true, "Replace removed text with spaces so offsets and line numbers are kept.")
	trailingCommas := fs.Bool("trailing-commas", false, "Also remove commas directly before a closing } or ].")
	write := fs.Bool("w", false, "Write the result back to the source files instead of stdout.")
	concurrency := fs.Int("concurrency", runtime.NumCPU(), "Number of files processed in parallel.")
	cachePath := fs.String("cache", "", "Path of the content hash cache used together with -w.")
	force := fs.Bool("force", false, "Process files even when the cache says they are unchanged.")
	extensions := fs.String("ext", strings.Join(processor.DefaultExtensions, ","), "Comma separated file extensions matched by globs.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := jsonc.Options{
		PreserveWhitespace:  *whitespace,
		StripTrailingCommas: *trailingCommas,
	}

	if fs.NArg() == 0 {
		if *write {
			return jsonc.NewArgumentError("w", fmt.Errorf("writing in place requires file arguments"))
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		_, err = io.WriteString(stdout, jsonc.Strip(string(data), &opts))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	klog.V(3).Infof("%s stripping %v", properties.UserAgent(), fs.Args())
	p := processor.NewProcessor(processor.Config{
		Patterns:    fs.Args(),
		Extensions:  strings.Split(*extensions, ","),
		Options:     opts,
		Write:       *write,
		Concurrency: *concurrency,
		CachePath:   *cachePath,
		Force:       *force,
	}, nil)

	summary, err := p.Run(ctx)
	if summary == nil {
		return err
	}

	if *write {
		klog.Infof("Stripped %d file(s), %d changed, %d unchanged since the last run", summary.Processed, summary.Changed, summary.Skipped)
		return err
	}
	for _, result := range summary.Results {
		if _, werr := stdout.Write(result.Output); werr != nil {
			return werr
		}
	}

	return err
}

func runSet(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	klog.InitFlags(fs)
	format := fs.String("format", string(document.Json), "Output format: json, yaml or properties.")
	output := fs.String("o", "", "Output path, defaults to the input file. Use - for stdout.")
	schemaPath := fs.String("schema", "", "JSON Schema the edited document must satisfy.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return jsonc.NewArgumentError("file", fmt.Errorf("a config file is required"))
	}

	outputFormat, err := document.ParseFormat(*format)
	if err != nil {
		return err
	}

	path := fs.Arg(0)
	patch, err := document.ParseAssignments(fs.Args()[1:])
	if err != nil {
		return err
	}

	doc, err := document.Load(path, nil)
	if err != nil {
		return err
	}
	doc.Merge(patch)

	if *schemaPath != "" {
		schema, err := document.CompileSchema(*schemaPath)
		if err != nil {
			return err
		}
		if err := schema.Validate(doc); err != nil {
			return err
		}
	}

	switch *output {
	case "-":
		out, err := doc.Encode(outputFormat)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	case "":
		*output = path
	}
	klog.V(3).Infof("Writing %s as %s", *output, outputFormat)

	return doc.Save(*output, outputFormat)
}
