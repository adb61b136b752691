package termproc

import (
	"reflect"
	"testing"
)

func TestSplitBashCommandsNewlineSeparated(t *testing.T) {
	got := SplitBashCommands("ls -l\necho hi")
	want := []string{"ls -l", "echo hi"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitBashCommands = %#v, want %#v", got, want)
	}
}

func TestSplitBashCommandsKeepsAndOperatorTogether(t *testing.T) {
	got := SplitBashCommands("echo a && echo b")
	want := []string{"echo a && echo b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitBashCommands = %#v, want %#v", got, want)
	}
}

func TestSplitBashCommandsKeepsPipeTogether(t *testing.T) {
	got := SplitBashCommands("cat file | grep foo\necho done")
	want := []string{"cat file | grep foo", "echo done"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitBashCommands = %#v, want %#v", got, want)
	}
}

func TestSplitBashCommandsEmptyInput(t *testing.T) {
	got := SplitBashCommands("")
	want := []string{""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitBashCommands(\"\") = %#v, want %#v", got, want)
	}
}

func TestSplitBashCommandsWhitespaceOnlyInput(t *testing.T) {
	got := SplitBashCommands("   \n  ")
	want := []string{""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitBashCommands(whitespace) = %#v, want %#v", got, want)
	}
}

func TestSplitBashCommandsKeepsQuotedNewline(t *testing.T) {
	got := SplitBashCommands("echo \"a\nb\"")
	if len(got) != 1 {
		t.Fatalf("expected quoted newline to stay in one statement, got %#v", got)
	}
}
