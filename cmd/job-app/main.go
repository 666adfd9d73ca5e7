// Command job-app は求人応募管理APIのサーバー、ワーカー、マイグレーションを起動する。
//
// 使い方:
//
//	job-app [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/arbaazshaikh08/job-app/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
