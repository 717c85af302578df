package user

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"crdtset/packages/replica"

	"github.com/chzyer/readline"
)

// RunInput drives an interactive session against a group of named
// replicas. Mutations go through the replica's local operation path, so a
// session over several replicas exercises the broadcast channel; merge
// syncs a pair explicitly.
func RunInput(replicas map[string]*replica.Replica) error {
	rl, err := readline.New("orset> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("commands: REPLICA add|rem|has|tags ELEMENT, REPLICA ls|size|isize, merge A B, quit")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		text := strings.TrimSpace(line)
		if len(text) == 0 {
			continue
		}
		input := strings.Fields(text)

		if input[0] == "quit" || input[0] == "exit" {
			return nil
		}

		if input[0] == "merge" {
			if len(input) != 3 {
				fmt.Println("usage: merge A B")
				continue
			}
			a, okA := replicas[input[1]]
			b, okB := replicas[input[2]]
			if !okA || !okB {
				fmt.Println("unknown replica")
				continue
			}
			a.Merge(b)
			b.Merge(a)
			fmt.Println("merged", a.GetID(), "<->", b.GetID())
			continue
		}

		r, ok := replicas[input[0]]
		if !ok {
			fmt.Println("unknown replica", input[0])
			continue
		}
		if len(input) < 2 {
			fmt.Println("missing operation")
			continue
		}

		switch input[1] {
		case "add":
			if len(input) != 3 {
				fmt.Println("usage: REPLICA add ELEMENT")
				continue
			}
			r.Add(input[2])
		case "rem":
			if len(input) != 3 {
				fmt.Println("usage: REPLICA rem ELEMENT")
				continue
			}
			r.Remove(input[2])
		case "has":
			if len(input) != 3 {
				fmt.Println("usage: REPLICA has ELEMENT")
				continue
			}
			fmt.Println(r.Contains(input[2]))
		case "tags":
			if len(input) != 3 {
				fmt.Println("usage: REPLICA tags ELEMENT")
				continue
			}
			fmt.Println(r.Set.Tags(input[2]))
		case "ls":
			elements := r.Elements().ToSlice()
			sort.Strings(elements)
			fmt.Println(elements)
		case "size":
			fmt.Println(r.Size())
		case "isize":
			fmt.Println(r.InternalSize())
		default:
			fmt.Println("unknown operation", input[1])
		}
	}
}
