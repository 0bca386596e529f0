package call_sdk

import "testing"

func TestIsValidTableName(t *testing.T) {
	cases := map[string]bool{
		"im_live_session":       true,
		"call_notification":     true,
		"":                      false,
		"im_live; DROP TABLE x": false,
		"im-live":               false,
	}
	for name, want := range cases {
		if got := isValidTableName(name); got != want {
			t.Fatalf("isValidTableName(%q)=%v want %v", name, got, want)
		}
	}
}

func TestAlterIDColumnSQL(t *testing.T) {
	if got := alterIDColumnSQL("mysql", "im_live_session"); got != "ALTER TABLE `im_live_session` MODIFY COLUMN `id` VARCHAR(36) NOT NULL" {
		t.Fatalf("mysql: %s", got)
	}
	if got := alterIDColumnSQL("postgres", "im_live_session"); got != `ALTER TABLE "im_live_session" ALTER COLUMN "id" DROP DEFAULT, ALTER COLUMN "id" TYPE VARCHAR(36)` {
		t.Fatalf("postgres: %s", got)
	}
	if !isIntegerColumn("BIGINT") || isIntegerColumn("VARCHAR") {
		t.Fatal("isIntegerColumn mismatch")
	}
}
