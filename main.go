package main

import (
	"log"

	"github.com/wechatferry/ferry/cmd/ferry"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	ferry.Execute()
}
