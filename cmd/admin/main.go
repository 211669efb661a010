// 部署辅助工具：为 ADMIN_PIN_HASH 生成 bcrypt 哈希。
//
//	go run ./cmd/admin -pin 0401
package main

import (
	"flag"
	"fmt"
	"log"

	"mandala/internal/auth"
)

func main() {
	pin := flag.String("pin", "", "admin PIN to hash")
	flag.Parse()

	if *pin == "" {
		log.Fatal("usage: admin -pin <pin>")
	}

	hash, err := auth.HashPin(*pin)
	if err != nil {
		log.Fatalf("hash pin: %v", err)
	}
	fmt.Println(hash)
}
