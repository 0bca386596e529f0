package main

import (
	"fmt"
	"log"
	"os"

	"github.com/cydxin/call-sdk/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Usage:
//
//	set CALLSDK_DSN=user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=true&loc=UTC
//	set CALLSDK_DRIVER=mysql   (或 postgres)
//	go run ./scripts/print_gorm_schema.go
func main() {
	dsn := os.Getenv("CALLSDK_DSN")
	if dsn == "" {
		log.Fatal("CALLSDK_DSN is empty")
	}
	if p := os.Getenv("CALLSDK_TABLE_PREFIX"); p != "" {
		models.SetTablePrefix(p)
	}

	dialector := mysql.Open(dsn)
	if os.Getenv("CALLSDK_DRIVER") == "postgres" {
		dialector = postgres.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	for _, m := range []any{&models.Notification{}, &models.LiveSession{}} {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			log.Fatalf("parse %T: %v", m, err)
		}
		printSchema(db, stmt.Schema)
	}
}

// printSchema GORM 解析出的字段 + 方言类型（CREATE/ALTER TABLE 会用到的类型）+ 实际库里的列
func printSchema(db *gorm.DB, s *schema.Schema) {
	fmt.Printf("=== %s ===\n", s.Table)
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		fmt.Printf("%-14s %-12s %-24s tag=%s\n", f.DBName, f.GORMDataType, db.Dialector.DataTypeOf(f), f.Tag.Get("gorm"))
	}

	if !db.Migrator().HasTable(s.Table) {
		fmt.Println("(table not created yet)")
		return
	}
	cols, err := db.Migrator().ColumnTypes(s.Table)
	if err != nil {
		fmt.Println("column types failed:", err)
		return
	}
	fmt.Println("--- actual columns ---")
	for _, c := range cols {
		nullable, _ := c.Nullable()
		fmt.Printf("%-14s %-16s null=%v\n", c.Name(), c.DatabaseTypeName(), nullable)
	}
	idx, err := db.Migrator().GetIndexes(s.Table)
	if err == nil {
		for _, i := range idx {
			fmt.Printf("index %s %v\n", i.Name(), i.Columns())
		}
	}
}
