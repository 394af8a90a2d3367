package mongo

import (
	"regexp"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPrefixPatternEscapesMetacharacters(t *testing.T) {
	re := regexp.MustCompile(prefixPattern("A.B (c)"))
	if !re.MatchString("A.B (c) Smith") {
		t.Fatalf("pattern does not match literal prefix")
	}
	if re.MatchString("AxB (c) Smith") {
		t.Fatalf("dot was not escaped")
	}
	if re.MatchString("x A.B (c)") {
		t.Fatalf("pattern is not anchored")
	}
}

func TestToRecordDropsIDAndFormatsValues(t *testing.T) {
	ts := time.Date(2026, 4, 9, 8, 30, 0, 0, time.UTC)
	rec := toRecord(bson.M{
		"_id":           primitive.NewObjectID(),
		"user_id":       int64(42),
		"tour":          "Museum",
		"created_at":    primitive.NewDateTimeFromTime(ts),
		"user_passport": nil,
	})
	if _, ok := rec["_id"]; ok {
		t.Fatalf("_id leaked into record")
	}
	if _, ok := rec["user_passport"]; ok {
		t.Fatalf("nil value kept")
	}
	if rec["user_id"] != "42" || rec["tour"] != "Museum" || rec["created_at"] != "2026-04-09T08:30:00Z" {
		t.Fatalf("record = %v", rec)
	}
}
