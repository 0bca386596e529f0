// Package main 呼叫信令服务入口（HTTP + WebSocket + 后台清理任务）
package main

import (
	"log"

	"github.com/cydxin/call-sdk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
