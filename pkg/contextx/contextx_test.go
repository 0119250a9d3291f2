package contextx_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/awslabs/Git-llm-pick/pkg/contextx"
	"github.com/awslabs/Git-llm-pick/pkg/types"
)

const rustSource = `struct Point {
    x: i32,
}

fn compute(p: Point) -> i32 {
    p.x
}
`

func rustPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`^fn\s`),
		regexp.MustCompile(`^struct\s`),
	}
}

const goSource = `package main

import "fmt"

func helper() int {
	return 1
}

func main() {
	x := helper()
	fmt.Println(x)
}
`

func TestExtractFindsEnclosingFunction(t *testing.T) {
	sec := contextx.Extract("main.go", types.RevisionDestinationWorkingTree, goSource, 10, 10)
	assert.True(t, sec.Contains(10, 10))
	assert.Contains(t, sec.Text, "func main() {")
	assert.NotContains(t, sec.Text, "func helper")
}

func TestExtractFallsBackToWindowForUnknownExtension(t *testing.T) {
	content := strings.Repeat("line\n", 100)
	sec := contextx.Extract("data.unknownext", types.RevisionCommit, content, 50, 50)
	assert.True(t, sec.Contains(50, 50))
	assert.LessOrEqual(t, sec.EndLine-sec.StartLine, 2*20+1)
}

func TestRegisterPatternsAddsNewExtension(t *testing.T) {
	contextx.RegisterPatterns(".rs", rustPatterns())
	sec := contextx.Extract("lib.rs", types.RevisionSourceParent, rustSource, 6, 6)
	assert.Contains(t, sec.Text, "fn compute")
	assert.NotContains(t, sec.Text, "struct Point")
}
