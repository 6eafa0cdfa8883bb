package dump

import (
	"bufio"
	"io"
	"strings"
	"testing"
)

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "cid second column",
			body: "\n  `server_id` int NOT NULL,\n  `cid` int NOT NULL,\n  `name` text\n) ENGINE=InnoDB;\n",
			want: 2,
		},
		{
			name: "cid first column",
			body: "\n  `cid` int NOT NULL,\n  `id` int NOT NULL\n) ENGINE=InnoDB;\n",
			want: 1,
		},
		{
			name: "no cid column",
			body: "\n  `id` int NOT NULL,\n  `name` text\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb3;\n",
			want: -1,
		},
		{
			name: "cid only in key",
			body: "\n  `id` int NOT NULL,\n  PRIMARY KEY (`cid`)\n) ENGINE=InnoDB;\n",
			want: 2,
		},
		{
			name: "input ends early",
			body: "\n  `id` int NOT NULL,\n",
			want: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := resolveColumns(bufio.NewReader(strings.NewReader(tt.body)))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("position = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveColumns_LeavesReaderAfterEngine(t *testing.T) {
	body := "\n  `cid` int NOT NULL,\n  `id` int\n) ENGINE=InnoDB;\n/*!40101 SET character_set_client = @saved_cs_client */;\n"
	in := bufio.NewReader(strings.NewReader(body))
	if _, _, err := resolveColumns(in); err != nil {
		t.Fatal(err)
	}
	rest, _ := io.ReadAll(in)
	if string(rest) != "/*!40101 SET character_set_client = @saved_cs_client */;\n" {
		t.Errorf("remaining input = %q", rest)
	}
}

func TestResolveColumns_ForeignKeys(t *testing.T) {
	body := "\n" +
		"  `cid` int unsigned NOT NULL,\n" +
		"  `contactId` int unsigned NOT NULL,\n" +
		"  `folder` int unsigned NOT NULL,\n" +
		"  PRIMARY KEY (`cid`,`contactId`),\n" +
		"  CONSTRAINT `a_ibfk_1` FOREIGN KEY (`cid`, `contactId`) REFERENCES `prg_contacts` (`cid`, `intfield01`),\n" +
		"  CONSTRAINT `a_ibfk_2` FOREIGN KEY (`folder`) REFERENCES `oxfolder_tree` (`fuid`) ON DELETE CASCADE\n" +
		") ENGINE=InnoDB;\n"

	pos, fks, err := resolveColumns(bufio.NewReader(strings.NewReader(body)))
	if err != nil {
		t.Fatal(err)
	}
	if pos != 1 {
		t.Errorf("position = %d, want 1", pos)
	}
	if len(fks) != 2 {
		t.Fatalf("foreign keys = %d, want 2", len(fks))
	}

	first := fks[0]
	if first.RefTable != "prg_contacts" {
		t.Errorf("RefTable = %q", first.RefTable)
	}
	if strings.Join(first.Columns, ",") != "cid,contactId" {
		t.Errorf("Columns = %v", first.Columns)
	}
	if strings.Join(first.RefColumns, ",") != "cid,intfield01" {
		t.Errorf("RefColumns = %v", first.RefColumns)
	}

	second := fks[1]
	if second.RefTable != "oxfolder_tree" || strings.Join(second.Columns, ",") != "folder" {
		t.Errorf("second key = %+v", second)
	}
}

func TestParseForeignKey_NotAConstraint(t *testing.T) {
	for _, line := range []string{
		"  `cid` int NOT NULL,",
		"  KEY `contactId` (`contactId`),",
		"  PRIMARY KEY (`cid`)",
	} {
		if _, ok := parseForeignKey(line); ok {
			t.Errorf("parseForeignKey(%q) matched", line)
		}
	}
}
