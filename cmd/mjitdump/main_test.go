package main

import (
	"bytes"
	"flag"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sumToNDump = `consts {
  c0:i64 = 0
  c1:i64 = 1
}
section {
b0(%0:i64, %1:ptr):
  jump b1(c0:i64, c0:i64)
b1(%2:i64, %3:i64):
  %4:bool = lt_u %2:i64, %0:i64
  branch %4:bool, b2, b3
b2():
  %5:i64 = add %3:i64, %2:i64
  %6:i64 = add %2:i64, c1:i64
  jump b1(%6:i64, %5:i64)
b3():
  store %1:ptr, %3:i64 aliasing=-1 offset=0
  exit
}
`

func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
}

func TestDoMainWritesOptimizedText(t *testing.T) {
	resetFlags()
	var out, errOut bytes.Buffer
	code := doMain(strings.NewReader(sumToNDump), &out, &errOut)
	require.Equal(t, 0, code, "stderr: %s", errOut.String())
	require.Contains(t, out.String(), "section {")
}

func TestDoMainRejectsMalformedInput(t *testing.T) {
	resetFlags()
	var out, errOut bytes.Buffer
	code := doMain(strings.NewReader("not an ir dump"), &out, &errOut)
	require.NotEqual(t, 0, code)
	require.NotZero(t, errOut.Len())
}
