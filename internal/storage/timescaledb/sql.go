package timescaledb

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

// spike_counts is partitioned on the run timestamp so long-running labs can
// age out old runs with TimescaleDB retention policies
const createHypertableSQL = `SELECT create_hypertable('spike_counts', 'created_at', if_not_exists => TRUE, migrate_data => TRUE);`
