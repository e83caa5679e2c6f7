// 包 migrations 以 embed 方式携带检索索引的建表脚本。
package migrations

import "embed"

// Files 为编译进二进制的迁移脚本。
//
//go:embed *.sql
var Files embed.FS
