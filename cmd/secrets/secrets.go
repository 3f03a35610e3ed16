// Copyright 2021 The age Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	_log "log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	secrets "github.com/zydiig/secrets-go"
	"github.com/zydiig/secrets-go/internal/volume"
)

const usage = `Usage:
    secrets encrypt [-o OUTPUT] [-c LEVEL] [-v SIZE] [-p PASSWORD | -P FILE] INPUT...
    secrets decrypt [-o DIR] [-p PASSWORD | -P FILE] INPUT
    secrets test [-p PASSWORD | -P FILE] INPUT

Options:
    -o, --output PATH     Archive path for encrypt, extraction directory for decrypt.
    -c, --comp LEVEL      Zstd compression level, -5..22 (default 3).
    -v, --volume SIZE     Split the archive into volumes of SIZE bytes (K/M/G suffixes allowed).
    -p, --password PASS   Password. Prompted interactively if omitted.
    -P, --passfile PATH   Read the password from the first line of PATH.

INPUT to encrypt may name one or more files or directories; decrypt and test
take exactly one archive path (its first volume, if split).`

func main() {
	_log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		exit(1)
	}

	var err error
	switch os.Args[1] {
	case "encrypt":
		err = runEncrypt(os.Args[2:])
	case "decrypt":
		err = runDecrypt(os.Args[2:])
	case "test":
		err = runTest(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprintln(os.Stderr, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "secrets: unknown command %q\n\n%s\n", os.Args[1], usage)
		exit(1)
	}
	if err != nil {
		errorf("%v", err)
	}
}

type commonFlags struct {
	password string
	passfile string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.password, "p", "", "password")
	fs.StringVar(&f.password, "password", "", "password")
	fs.StringVar(&f.passfile, "P", "", "password file")
	fs.StringVar(&f.passfile, "passfile", "", "password file")
}

func (f *commonFlags) resolve(prompt string) ([]byte, error) {
	if f.password != "" {
		return []byte(f.password), nil
	}
	if f.passfile != "" {
		b, err := os.ReadFile(f.passfile)
		if err != nil {
			return nil, fmt.Errorf("reading password file: %w", err)
		}
		line, _, _ := strings.Cut(string(b), "\n")
		return []byte(strings.TrimRight(line, "\r")), nil
	}
	return readSecret(prompt)
}

func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	mult := int64(1)
	switch suffix := s[len(s)-1]; suffix {
	case 'k', 'K':
		mult, s = 1<<10, s[:len(s)-1]
	case 'm', 'M':
		mult, s = 1<<20, s[:len(s)-1]
	case 'g', 'G':
		mult, s = 1<<30, s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume size %q: %w", s, err)
	}
	return n * mult, nil
}

func runEncrypt(args []string) error {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	var output, comp, volumeSize string
	fs.StringVar(&output, "o", "", "output path")
	fs.StringVar(&output, "output", "", "output path")
	fs.StringVar(&comp, "c", "3", "compression level")
	fs.StringVar(&comp, "comp", "3", "compression level")
	fs.StringVar(&volumeSize, "v", "", "volume size")
	fs.StringVar(&volumeSize, "volume", "", "volume size")
	fs.Parse(args)

	if output == "" {
		return fmt.Errorf("encrypt requires -o")
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("encrypt requires at least one input path")
	}
	level, err := strconv.Atoi(comp)
	if err != nil {
		return fmt.Errorf("invalid compression level %q: %w", comp, err)
	}
	vsize, err := parseSize(volumeSize)
	if err != nil {
		return err
	}
	password, err := common.resolve("password:")
	if err != nil {
		return err
	}

	var sink io.Writer
	var rotator volume.WriteRotator
	var closer io.Closer
	if vsize > 0 {
		fw, err := volume.NewFileWriter(volume.FirstVolumePath(output))
		if err != nil {
			return err
		}
		sink, rotator, closer = fw, fw, fw
	} else {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		sink, closer = f, f
	}

	w, err := secrets.NewWriter(sink, rotator, closer, password, secrets.DefaultParams, vsize)
	if err != nil {
		return err
	}
	for _, path := range fs.Args() {
		if err := w.AddPath(path, level); err != nil {
			return err
		}
	}
	return w.End()
}

func runDecrypt(args []string) error {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	var outDir string
	fs.StringVar(&outDir, "o", ".", "extraction directory")
	fs.StringVar(&outDir, "output", ".", "extraction directory")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("decrypt requires exactly one archive path")
	}
	password, err := common.resolve("password:")
	if err != nil {
		return err
	}

	fr, err := volume.NewFileReader(fs.Arg(0))
	if err != nil {
		return err
	}
	r, err := secrets.NewReader(fr, fr, fr, password)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		or, hdr, err := r.NextObject()
		if err != nil {
			return err
		}
		if hdr == nil {
			break
		}
		dest := filepath.Join(append([]string{outDir}, hdr.Path...)...)
		if hdr.ObjectType == secrets.TypeDirectory {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		f, err := os.Create(dest)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, or); err != nil {
			f.Close()
			return err
		}
		if err := or.Verify(); err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", dest, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		printf("extracted %s", dest)
	}
	return nil
}

func runTest(args []string) error {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("test requires exactly one archive path")
	}
	password, err := common.resolve("password:")
	if err != nil {
		return err
	}

	fr, err := volume.NewFileReader(fs.Arg(0))
	if err != nil {
		return err
	}
	r, err := secrets.NewReader(fr, fr, fr, password)
	if err != nil {
		return err
	}
	defer r.Close()

	objects := 0
	for {
		or, hdr, err := r.NextObject()
		if err != nil {
			return err
		}
		if hdr == nil {
			break
		}
		objects++
		if hdr.ObjectType == secrets.TypeDirectory {
			printf("ok   %s (directory)", hdr.Name)
			continue
		}
		if _, err := io.Copy(io.Discard, or); err != nil {
			return fmt.Errorf("%s: %w", hdr.Name, err)
		}
		if err := or.Verify(); err != nil {
			return fmt.Errorf("%s: %w", hdr.Name, err)
		}
		printf("ok   %s", hdr.Name)
	}
	printf("%d objects verified", objects)
	return nil
}

