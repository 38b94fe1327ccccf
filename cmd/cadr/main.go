// Command cadr ahead-of-time compiles a source file to textual LLVM IR.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"

	"consair/internal/cache"
	"consair/internal/driver"
	"consair/internal/reader"
	"consair/internal/util"
)

// run reads opt.Src, compiles it through the AOT driver, and writes the
// resulting IR to opt.Out (or a sibling .ll file if Out was not given).
func run(opt util.CadrOptions) error {
	src, err := os.ReadFile(opt.Src)
	if err != nil {
		return fmt.Errorf("could not read source code: %s", err)
	}

	forms, err := reader.ReadAll(string(src))
	if err != nil {
		return fmt.Errorf("parse error: %s", err)
	}

	result, err := driver.CompileAOT(context.Background(), forms, cache.DefaultConfig())
	if err != nil {
		return fmt.Errorf("compilation error: %s", err)
	}
	glog.V(1).Infof("cadr: %d cache hits avoided recompilation", result.Stats.CompilationsAvoided)

	out := opt.Out
	if out == "" {
		ext := filepath.Ext(opt.Src)
		out = strings.TrimSuffix(opt.Src, ext) + ".ll"
	}
	if err := os.WriteFile(out, []byte(result.IR), 0644); err != nil {
		return fmt.Errorf("could not write output: %s", err)
	}
	return nil
}

func main() {
	opt, err := util.ParseCadrArgs()
	if err != nil {
		fmt.Printf("Command line argument error: %s\n", err)
		os.Exit(1)
	}

	if err := run(opt); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
}
