package aio_test

import (
	"fmt"
	"time"

	"github.com/b97tsk/aio"
)

func Example() {
	// Create a loop. Callbacks and coroutine steps run on it one at
	// a time; nothing in this package ever runs concurrently with
	// anything else on the same loop.
	l := aio.NewLoop()

	// A task drives a coroutine. Generator turns an ordinary
	// function into one: it can await mid-body and read results off
	// awaitables as plain return values.
	greet := func(name string, d time.Duration) aio.Awaitable {
		return aio.NewTask(l, aio.Generator(func(g *aio.Gen) (any, error) {
			if _, err := g.Await(aio.Sleep(l, d, nil)); err != nil {
				return nil, err
			}
			return "Hello, " + name + "!", nil
		}))
	}

	// Gather aggregates results in argument order, no matter which
	// task finishes first.
	all := aio.Gather(l,
		greet("World", 20*time.Millisecond),
		greet("Gopher", 10*time.Millisecond),
	)

	results, _ := l.RunUntilDone(all)
	for _, r := range results.([]any) {
		fmt.Println(r)
	}
	// Output:
	// Hello, World!
	// Hello, Gopher!
}

func ExampleSubmit() {
	l := aio.NewLoop()

	// Set up an autorun function so the loop runs itself whenever
	// there is work, with no goroutine dedicated to it.
	l.Autorun(l.Run)

	// Submit is the one entry point safe to call from any goroutine.
	p := aio.Submit(l, aio.Generator(func(g *aio.Gen) (any, error) {
		return 6 * 7, nil
	}))

	v, _ := p.Result()
	fmt.Println(v)
	// Output:
	// 42
}

func ExampleWaitFor() {
	l := aio.NewLoop()

	slow := aio.NewTask(l, aio.Generator(func(g *aio.Gen) (any, error) {
		return g.Await(aio.Sleep(l, time.Hour, "too late"))
	}))

	_, err := l.RunUntilDone(aio.WaitFor(l, 10*time.Millisecond, slow))
	fmt.Println(err)
	fmt.Println(slow.State())
	// Output:
	// aio: timeout
	// cancelled
}

func ExampleTask_Cancel() {
	l := aio.NewLoop()

	task := aio.NewTask(l, aio.Generator(func(g *aio.Gen) (any, error) {
		if _, err := g.Await(aio.Sleep(l, time.Hour, nil)); err != nil {
			fmt.Println("cancellation requested")
			return nil, err
		}
		return nil, nil
	}))

	l.Run()
	task.Cancel()

	_, err := l.RunUntilDone(task)
	fmt.Println(err)
	// Output:
	// cancellation requested
	// aio: cancelled
}
