//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"memory-gateway/src/internal/client"
)

// promise runs fn on a goroutine and settles a JS Promise with its JSON result.
func promise(fn func(ctx context.Context) (any, error)) js.Value {
	handler := js.FuncOf(func(this js.Value, args []js.Value) any {
		resolve := args[0]
		reject := args[1]

		go func() {
			res, err := fn(context.Background())
			if err != nil {
				reject.Invoke(err.Error())
				return
			}
			data, err := json.Marshal(res)
			if err != nil {
				reject.Invoke(err.Error())
				return
			}
			resolve.Invoke(string(data))
		}()

		return nil
	})

	return js.Global().Get("Promise").New(handler)
}

func optInt(args []js.Value, i int) int {
	if len(args) > i && args[i].Type() == js.TypeNumber {
		return args[i].Int()
	}
	return 0
}

func optString(args []js.Value, i int) string {
	if len(args) > i && args[i].Type() == js.TypeString {
		return args[i].String()
	}
	return ""
}

func main() {
	c := make(chan struct{})

	js.Global().Set("memgwSearch", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 2 {
			return "Error: missing arguments (baseUrl, query, [limit])"
		}
		gw := client.New(args[0].String())
		query := args[1].String()
		limit := optInt(args, 2)

		return promise(func(ctx context.Context) (any, error) {
			return gw.Search(ctx, query, limit)
		})
	}))

	js.Global().Set("memgwRetrieveForTask", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 2 {
			return "Error: missing arguments (baseUrl, task, [branch], [limit])"
		}
		gw := client.New(args[0].String())
		task := args[1].String()
		branch := optString(args, 2)
		limit := optInt(args, 3)

		return promise(func(ctx context.Context) (any, error) {
			res, err := gw.RetrieveForTask(ctx, task, branch, limit)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"task":       res.Task,
				"hits":       res.Hits(),
				"provenance": res.Provenance,
			}, nil
		})
	}))

	fmt.Println("memory gateway WASM client initialized")
	<-c
}
