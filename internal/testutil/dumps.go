package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Dump builds mysqldump formatted text for tests.
type Dump struct {
	b strings.Builder
}

// NewDump starts a dump with the standard mysqldump header. database ends
// up in the "-- Host:" line and is empty for multi-database dumps.
func NewDump(database string) *Dump {
	d := &Dump{}
	d.b.WriteString("-- MySQL dump 10.13  Distrib 8.0.36, for Linux (x86_64)\n")
	d.b.WriteString("--\n")
	if database != "" {
		fmt.Fprintf(&d.b, "-- Host: localhost    Database: %s\n", database)
	} else {
		d.b.WriteString("-- Host: localhost\n")
	}
	d.b.WriteString("-- ------------------------------------------------------\n")
	d.b.WriteString("-- Server version\t8.0.36\n\n")
	d.b.WriteString("/*!40101 SET @OLD_CHARACTER_SET_CLIENT=@@CHARACTER_SET_CLIENT */;\n")
	d.b.WriteString("/*!40103 SET @OLD_TIME_ZONE=@@TIME_ZONE */;\n")
	d.b.WriteString("/*!40014 SET @OLD_UNIQUE_CHECKS=@@UNIQUE_CHECKS, UNIQUE_CHECKS=0 */;\n\n")
	return d
}

// Database adds a "Current Database" section as written with --databases.
func (d *Dump) Database(name string) *Dump {
	fmt.Fprintf(&d.b, "--\n-- Current Database: `%s`\n--\n\n", name)
	fmt.Fprintf(&d.b, "CREATE DATABASE /*!32312 IF NOT EXISTS*/ `%s` /*!40100 DEFAULT CHARACTER SET utf8mb4 */;\n\n", name)
	fmt.Fprintf(&d.b, "USE `%s`;\n\n", name)
	return d
}

// Table adds the structure section of a table. Each column and constraint
// is one line of the CREATE TABLE body.
func (d *Dump) Table(name string, lines ...string) *Dump {
	fmt.Fprintf(&d.b, "--\n-- Table structure for table `%s`\n--\n\n", name)
	fmt.Fprintf(&d.b, "DROP TABLE IF EXISTS `%s`;\n", name)
	d.b.WriteString("/*!40101 SET @saved_cs_client     = @@character_set_client */;\n")
	d.b.WriteString("/*!50503 SET character_set_client = utf8mb4 */;\n")
	fmt.Fprintf(&d.b, "CREATE TABLE `%s` (\n", name)
	for i, line := range lines {
		d.b.WriteString("  " + line)
		if i < len(lines)-1 {
			d.b.WriteByte(',')
		}
		d.b.WriteByte('\n')
	}
	d.b.WriteString(") ENGINE=InnoDB DEFAULT CHARSET=utf8mb3;\n")
	d.b.WriteString("/*!40101 SET character_set_client = @saved_cs_client */;\n\n")
	return d
}

// Data adds the data section of a table, one extended INSERT per statement.
func (d *Dump) Data(name string, statements ...string) *Dump {
	fmt.Fprintf(&d.b, "--\n-- Dumping data for table `%s`\n--\n\n", name)
	fmt.Fprintf(&d.b, "LOCK TABLES `%s` WRITE;\n", name)
	fmt.Fprintf(&d.b, "/*!40000 ALTER TABLE `%s` DISABLE KEYS */;\n", name)
	for _, values := range statements {
		fmt.Fprintf(&d.b, "INSERT INTO `%s` VALUES %s;\n", name, values)
	}
	fmt.Fprintf(&d.b, "/*!40000 ALTER TABLE `%s` ENABLE KEYS */;\n", name)
	d.b.WriteString("UNLOCK TABLES;\n\n")
	return d
}

// Raw appends text verbatim.
func (d *Dump) Raw(s string) *Dump {
	d.b.WriteString(s)
	return d
}

// String closes the dump with the completion comment.
func (d *Dump) String() string {
	return d.b.String() + "-- Dump completed on 2026-10-01 12:00:00\n"
}

// ConfigDB returns a single-database dump of the configdb.
func ConfigDB() *Dump {
	return NewDump("configdb").ConfigDBTables()
}

// TenantSchema returns a single-database dump of schema.
func TenantSchema(schema string) *Dump {
	return NewDump(schema).TenantTables()
}

// ConfigDBTables adds configdb tables mapping context 5 to schema oxdb_5 on
// pool 4 and context 6 to oxdb_6 on pool 7.
func (d *Dump) ConfigDBTables() *Dump {
	return d.
		Table("context",
			"`cid` int unsigned NOT NULL",
			"`name` varchar(128) NOT NULL",
			"`enabled` tinyint(1) DEFAULT NULL",
			"PRIMARY KEY (`cid`)").
		Data("context", "(5,'ctx5',1),(6,'ctx6',1)").
		Table("context_server2db_pool",
			"`server_id` int unsigned NOT NULL",
			"`cid` int unsigned NOT NULL",
			"`read_db_pool_id` int unsigned NOT NULL",
			"`write_db_pool_id` int unsigned NOT NULL",
			"`db_schema` varchar(32) NOT NULL",
			"PRIMARY KEY (`cid`,`server_id`)").
		Data("context_server2db_pool", "(1,5,3,4,'oxdb_5'),(1,6,3,7,'oxdb_6')").
		Table("server",
			"`server_id` int unsigned NOT NULL",
			"`name` varchar(255) NOT NULL",
			"PRIMARY KEY (`server_id`)").
		Data("server", "(1,'oxserver')")
}

// TenantTables adds tenant tables with rows for contexts 5 and 6 and an
// updateTask table.
func (d *Dump) TenantTables() *Dump {
	return d.
		Table("prg_contacts",
			"`cid` int unsigned NOT NULL",
			"`intfield01` int unsigned NOT NULL",
			"`field01` varchar(320) DEFAULT NULL",
			"PRIMARY KEY (`cid`,`intfield01`)").
		Data("prg_contacts", `(5,1,'Doe, John'),(6,1,'Roe, Jane'),(5,2,'O\'Brien (Pat)')`).
		Table("updateTask",
			"`cid` int unsigned NOT NULL",
			"`taskName` varchar(1024) NOT NULL",
			"`successful` tinyint(1) NOT NULL",
			"`lastModified` bigint NOT NULL",
			"`uuid` binary(16) NOT NULL",
			"PRIMARY KEY (`cid`,`uuid`)").
		Data("updateTask",
			"(0,'com.openexchange.groupware.update.tasks.CreateTableVersion',1,1690000000000,'a1'),"+
				"(5,'com.openexchange.contact.storage.rdb.groupware.AddFulltextIndexTask',1,1690000000001,'b2'),"+
				"(6,'com.openexchange.contact.storage.rdb.groupware.AddFulltextIndexTask',0,1690000000002,'c3'),"+
				"(5,'com.openexchange.groupware.update.tasks.MailAccountAddReplyToTask',0,1690000000003,'d4')").
		Table("user",
			"`cid` int unsigned NOT NULL",
			"`id` int unsigned NOT NULL",
			"`mail` varchar(256) NOT NULL",
			"`contactId` int unsigned NOT NULL",
			"PRIMARY KEY (`cid`,`id`)",
			"CONSTRAINT `user_ibfk_1` FOREIGN KEY (`cid`, `contactId`) REFERENCES `prg_contacts` (`cid`, `intfield01`)").
		Data("user", "(5,2,'john@example.com',1),(6,2,'jane@example.com',1)")
}

// WriteFile writes content into dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
