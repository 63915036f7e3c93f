package main

import (
	"strconv"

	"github.com/vango-dev/vdiff/pkg/vdom"
)

// board is the state of the demo program served by `vdiff serve`: a keyed
// task list that edits itself on every tick.
type board struct {
	tasks []task
	next  int
	ticks int
}

type task struct {
	key  string
	done bool
}

type (
	tickMsg   struct{}
	toggleMsg struct{ key string }
	clearMsg  struct{}
	headerMsg struct{ msg any }
)

func newBoard() board {
	b := board{}
	for i := 0; i < 5; i++ {
		b = b.add()
	}
	return b
}

func (b board) add() board {
	b.next++
	b.tasks = append(append([]task(nil), b.tasks...), task{key: "task-" + strconv.Itoa(b.next)})
	return b
}

func updateBoard(b board, msg any) board {
	switch msg := msg.(type) {
	case tickMsg:
		b.ticks++
		return b.step()
	case toggleMsg:
		tasks := append([]task(nil), b.tasks...)
		for i := range tasks {
			if tasks[i].key == msg.key {
				tasks[i].done = !tasks[i].done
			}
		}
		b.tasks = tasks
	case headerMsg:
		return updateBoard(b, msg.msg)
	case clearMsg:
		var kept []task
		for _, t := range b.tasks {
			if !t.done {
				kept = append(kept, t)
			}
		}
		b.tasks = kept
	}
	return b
}

// step cycles through the edits a keyed list sees: append, complete,
// rotate and clear.
func (b board) step() board {
	n := len(b.tasks)
	switch b.ticks % 4 {
	case 0:
		return b.add()
	case 1:
		if n > 0 {
			return updateBoard(b, toggleMsg{key: b.tasks[b.ticks%n].key})
		}
	case 2:
		if n > 1 {
			b.tasks = append(append([]task(nil), b.tasks[1:]...), b.tasks[0])
		}
	case 3:
		if n > 8 {
			return updateBoard(b, clearMsg{})
		}
		return b.add()
	}
	return b
}

var headerTagger = vdom.NewTagger(func(msg any) any { return headerMsg{msg: msg} })

func viewBoard(b board) vdom.VNode {
	done := 0
	items := make([]vdom.KeyedChild, len(b.tasks))
	for i, t := range b.tasks {
		class := "task"
		if t.done {
			class = "task done"
			done++
		}
		items[i] = vdom.K(t.key, vdom.Li(vdom.Class(class), vdom.OnClick(toggleMsg{key: t.key}), t.key))
	}
	total := len(b.tasks)

	return vdom.Div(vdom.ID("board"),
		vdom.Map(headerTagger, vdom.Header(
			vdom.H1("vdiff demo"),
			vdom.Button(vdom.OnClick(clearMsg{}), "Clear done"),
		)),
		vdom.KeyedUl(vdom.Class("tasks"), items),
		vdom.Lazy(func() vdom.VNode { return boardFooter(done, total) }, done, total),
	)
}

func boardFooter(done, total int) vdom.VNode {
	return vdom.Footer(
		vdom.Strong(strconv.Itoa(done)), " of ", vdom.Strong(strconv.Itoa(total)), " done",
	)
}
