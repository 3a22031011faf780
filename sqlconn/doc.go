// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

/*
Package sqlconn runs sqlrecord commands on a database/sql connection.

	conn, db, err := sqlconn.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	records := sqlrecord.NewDB(conn)

The connection returned first collects statistics when cfg.SlowThreshold is
set; the second is the plain DB, which also starts transactions.

Parameters are bound by name for dialects with named placeholders and by
position otherwise. Output parameters are bound with sql.Out and copied
back onto the command once the call has finished.

The postgres, mysql and sqlite3 database/sql drivers are registered by this
package.
*/
package sqlconn
