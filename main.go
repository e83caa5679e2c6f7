// 命令行入口，子命令见 cmd 包。
package main

import "portfolio-content/cmd"

func main() {
	cmd.Execute()
}
