package catalog

// Queries use ? bind variables; they are expanded with sqlx.In and rebound
// to $n before execution.

const tablesQuery = `
SELECT
    c.oid::bigint AS oid,
    n.nspname AS schema_name,
    c.relname AS table_name
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind IN ('r', 'p')
    AND NOT c.relispartition
    AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
    AND n.nspname NOT LIKE 'pg_temp_%'
    AND n.nspname NOT LIKE 'pg_toast_temp_%'
    AND NOT EXISTS (
        SELECT 1 FROM pg_catalog.pg_depend d
        WHERE d.objid = c.oid AND d.deptype = 'e'
    )`

const schemaFilter = `
    AND n.nspname IN (?)`

const tablesOrder = `
ORDER BY n.nspname, c.relname`

const columnsQuery = `
SELECT
    a.attrelid::bigint AS table_oid,
    a.attname AS column_name,
    pg_catalog.format_type(a.atttypid, a.atttypmod) AS data_type,
    a.attnotnull AS not_null,
    a.attidentity IN ('a', 'd') AS is_identity,
    a.attgenerated = 's' AS is_generated,
    COALESCE(pg_catalog.pg_get_expr(d.adbin, d.adrelid), '') AS expression
FROM pg_catalog.pg_attribute a
LEFT JOIN pg_catalog.pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
WHERE a.attrelid IN (?)
    AND a.attnum > 0
    AND NOT a.attisdropped
ORDER BY a.attrelid, a.attnum`

// constraintsQuery returns one row per constraint column, in key order.
const constraintsQuery = `
SELECT
    con.conrelid::bigint AS table_oid,
    con.conname AS name,
    con.contype::text AS kind,
    a.attname AS column_name,
    k.ord AS position,
    COALESCE(rn.nspname, '') AS ref_schema,
    COALESCE(rc.relname, '') AS ref_table,
    COALESCE(ra.attname, '') AS ref_column,
    con.confdeltype::text = 'c' AS cascade_delete
FROM pg_catalog.pg_constraint con
CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
LEFT JOIN pg_catalog.pg_class rc ON rc.oid = con.confrelid
LEFT JOIN pg_catalog.pg_namespace rn ON rn.oid = rc.relnamespace
LEFT JOIN pg_catalog.pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = con.confkey[k.ord]
WHERE con.contype IN ('p', 'u', 'f')
    AND con.conrelid IN (?)
ORDER BY con.conrelid, con.conname, k.ord`

// dependentsQuery returns the triggers, standalone indexes and views of each
// table. None of them survive a staging transplant.
const dependentsQuery = `
SELECT table_oid, description FROM (
    SELECT t.tgrelid::bigint AS table_oid, 'trigger ' || t.tgname::text AS description
    FROM pg_catalog.pg_trigger t
    WHERE NOT t.tgisinternal AND t.tgrelid IN (?)
    UNION ALL
    SELECT i.indrelid::bigint, 'index ' || ic.relname::text
    FROM pg_catalog.pg_index i
    JOIN pg_catalog.pg_class ic ON ic.oid = i.indexrelid
    WHERE i.indrelid IN (?)
        AND NOT EXISTS (
            SELECT 1 FROM pg_catalog.pg_constraint con
            WHERE con.conindid = i.indexrelid AND con.conrelid = i.indrelid
        )
    UNION
    SELECT d.refobjid::bigint, 'view ' || vn.nspname::text || '.' || v.relname::text
    FROM pg_catalog.pg_depend d
    JOIN pg_catalog.pg_rewrite r ON r.oid = d.objid
    JOIN pg_catalog.pg_class v ON v.oid = r.ev_class
    JOIN pg_catalog.pg_namespace vn ON vn.oid = v.relnamespace
    WHERE d.classid = 'pg_catalog.pg_rewrite'::regclass
        AND d.refobjid IN (?)
        AND v.oid <> d.refobjid
) dep
ORDER BY table_oid, description`

type tableRow struct {
	OID    int64  `db:"oid"`
	Schema string `db:"schema_name"`
	Name   string `db:"table_name"`
}

type columnRow struct {
	TableOID    int64  `db:"table_oid"`
	Name        string `db:"column_name"`
	DataType    string `db:"data_type"`
	NotNull     bool   `db:"not_null"`
	IsIdentity  bool   `db:"is_identity"`
	IsGenerated bool   `db:"is_generated"`
	Expression  string `db:"expression"`
}

type constraintRow struct {
	TableOID      int64  `db:"table_oid"`
	Name          string `db:"name"`
	Kind          string `db:"kind"`
	Column        string `db:"column_name"`
	Position      int64  `db:"position"`
	RefSchema     string `db:"ref_schema"`
	RefTable      string `db:"ref_table"`
	RefColumn     string `db:"ref_column"`
	CascadeDelete bool   `db:"cascade_delete"`
}

type dependentRow struct {
	TableOID    int64  `db:"table_oid"`
	Description string `db:"description"`
}
