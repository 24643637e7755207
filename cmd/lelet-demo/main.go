package main

import (
	"context"
	"fmt"
	"time"

	"github.com/isgasho/lelet"
)

func main() {
	if err := lelet.SetNumCPUs(2); err != nil {
		fmt.Println("SetNumCPUs:", err)
	}

	fmt.Println("spawning a quick task and a blocking task on 2 processors...")

	quick := lelet.Spawn[string](lelet.FuncFuture[string](func(ctx context.Context) string {
		fmt.Println("  quick: running")
		return "ok"
	}))

	blocking := lelet.Spawn[int](lelet.FuncFuture[int](func(ctx context.Context) int {
		fmt.Println("  blocking: marking blocking, then sleeping 300ms")
		lelet.MarkBlocking(ctx)
		time.Sleep(300 * time.Millisecond)
		fmt.Println("  blocking: woke up")
		return 42
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	qv, err := quick.Join(ctx)
	if err != nil {
		fmt.Println("quick join error:", err)
	} else {
		fmt.Printf("quick completed in %s: %q\n", time.Since(start), qv)
	}

	bv, err := blocking.Join(ctx)
	if err != nil {
		fmt.Println("blocking join error:", err)
	} else {
		fmt.Printf("blocking completed in %s: %d\n", time.Since(start), bv)
	}

	fmt.Println("yields demo:")
	y := lelet.Spawn[int](lelet.Yields(5))
	yv, _ := y.Join(ctx)
	fmt.Printf("  polled %d times before completing\n", yv)
}
