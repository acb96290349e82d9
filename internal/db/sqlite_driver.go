package db

import (
	"crypto/sha3"
	"database/sql"
	"encoding/hex"
	"fmt"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

// SQLiteDriverName is the SQLCipher driver registered with the digest function.
const SQLiteDriverName = "sqlite3_notebook"

// digestFunc is the SQL name of digestHex. Set computes a slot's digest with
// it inside the write statement, so value and digest never disagree.
const digestFunc = "notebook_digest"

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc(digestFunc, digestHex, true); err != nil {
				return fmt.Errorf("register %s SQL function: %w", digestFunc, err)
			}
			return nil
		},
	})
}

// digestHex returns the lowercase hex SHA3-256 of a BLOB or TEXT value. The
// API serves the same digest as the slot's ETag.
func digestHex(v any) (string, error) {
	var data []byte
	switch x := v.(type) {
	case nil:
	case []byte:
		data = x
	case string:
		data = []byte(x)
	default:
		return "", fmt.Errorf("%s: unsupported input type %T", digestFunc, v)
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
