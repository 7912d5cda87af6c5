// Package main 启动应用程序
package main

import (
	"fmt"
	"os"

	"github.com/RadiumAg/image-saas/pkg/cmd"
)

//	@title			Image SaaS API
//	@version		1.0
//	@description	多租户图片托管服务：游标分页文件列表、回收站生命周期、标签与 AI 识别。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
