package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// cross-compilers from debian gcc-*-linux-gnu* packages, cgo is needed by oto (ALSA) and rtmidi
var knownTargets = []target{
	{goos: "linux", goarch: "arm", goarm: "6", cc: "arm-linux-gnueabi-gcc"},
	{goos: "linux", goarch: "arm", goarm: "7", cc: "arm-linux-gnueabihf-gcc"},
	{goos: "linux", goarch: "arm64", cc: "aarch64-linux-gnu-gcc"},
	{goos: "linux", goarch: "386", cc: "i686-linux-gnu-gcc"},
	{goos: "linux", goarch: "amd64", cc: "x86_64-linux-gnu-gcc"},
}

type target struct {
	goos, goarch, goarm string
	cc                  string
}

func (t target) String() string {
	if t.goarm != "" {
		return fmt.Sprintf("%s-%s-v%s", t.goos, t.goarch, t.goarm)
	}
	return fmt.Sprintf("%s-%s", t.goos, t.goarch)
}

func (t target) host() bool {
	return t.goos == runtime.GOOS && t.goarch == runtime.GOARCH
}

// env returns build environment, host target keeps the default C compiler.
func (t target) env(cgo bool) []string {
	env := []string{"GOOS=" + t.goos, "GOARCH=" + t.goarch}
	if t.goarm != "" {
		env = append(env, "GOARM="+t.goarm)
	}
	if !cgo {
		return append(env, "CGO_ENABLED=0")
	}
	env = append(env, "CGO_ENABLED=1")
	if !t.host() && t.cc != "" {
		env = append(env, "CC="+t.cc)
	}
	return env
}

type result struct {
	target         target
	err            error
	stdout, stderr string
}

func build(t target) result {
	args := []string{"build", "-o", fmt.Sprintf("./builds/%s-%s", basename, t)}
	if race {
		args = append(args, "-race")
	}
	args = append(args, project)

	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), t.env(cgo)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return result{target: t, err: err, stdout: stdout.String(), stderr: stderr.String()}
}

func selectTargets(selection string) ([]target, error) {
	switch selection {
	case "all":
		return knownTargets, nil
	case "host":
		for _, t := range knownTargets {
			if t.host() {
				return []target{t}, nil
			}
		}
		return []target{{goos: runtime.GOOS, goarch: runtime.GOARCH}}, nil
	}

	var selected []target
root:
	for _, name := range strings.Split(selection, ",") {
		for _, t := range knownTargets {
			if t.String() == name {
				selected = append(selected, t)
				continue root
			}
		}
		return nil, fmt.Errorf("target not found: %s", name)
	}
	return selected, nil
}

var selection, project, basename string
var cgo, race bool

func main() {
	var names []string
	for _, t := range knownTargets {
		names = append(names, t.String())
	}
	flag.StringVar(&selection, "platforms", "host", fmt.Sprintf(
		"comma-separated target platform list, \"host\" or \"all\"\navailable: %s", strings.Join(names, ",")),
	)
	flag.StringVar(&project, "project", "./cmd/espiano/", "project directory")
	flag.StringVar(&basename, "base", "espiano", "base filename for output binaries")
	flag.BoolVar(&cgo, "cgo", true, "cgo, required by synth and midi outputs, cross targets need their C compiler installed")
	flag.BoolVar(&race, "race", false, "include race detector")
	flag.Parse()

	log.SetFlags(log.Ltime)

	targets, err := selectTargets(selection)
	if err != nil {
		log.Print(err)
		os.Exit(1)
	}
	log.Printf("building %s for %d targets (cgo: %t)", project, len(targets), cgo)

	var results = make(chan result, len(targets))
	wg := sync.WaitGroup{}
	for _, t := range targets {
		wg.Add(1)
		go func(t target) {
			defer wg.Done()
			results <- build(t)
		}(t)
	}
	wg.Wait()
	close(results)

	var failed int
	for r := range results {
		if r.err == nil {
			log.Printf("%s: ok", r.target)
			continue
		}
		failed++
		log.Printf("%s: %v", r.target, r.err)
		if r.stdout != "" {
			fmt.Printf("======== STDOUT %s ========\n%s", r.target, r.stdout)
		}
		if r.stderr != "" {
			fmt.Printf("======== STDERR %s ========\n%s", r.target, r.stderr)
		}
	}

	if failed > 0 {
		log.Printf("%d of %d builds failed", failed, len(targets))
		os.Exit(1)
	}
}
