package postgresql

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/SparrowTek/cashu-mint/internal/database"
	"github.com/SparrowTek/cashu-mint/internal/database/goose"
)

var ErrDB = errors.New("ERROR DATABASE")

var DATABASE_URL_ENV = "DATABASE_URL"

type Postgresql struct {
	pool *pgxpool.Pool
}

func databaseError(err error) error {
	return errors.Join(ErrDB, err)
}

func DatabaseSetup(ctx context.Context, migrationDir string) (Postgresql, error) {

	var postgresql Postgresql

	dbUrl := os.Getenv(DATABASE_URL_ENV)
	if dbUrl == "" {
		return postgresql, fmt.Errorf("%v enviroment variable empty", DATABASE_URL_ENV)

	}

	pool, err := pgxpool.New(context.Background(), dbUrl)
	if err != nil {
		return postgresql, fmt.Errorf("pgxpool.New: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)

	err = goose.Migrate(db, goose.Postgres)
	if err := db.Close(); err != nil {
		panic(err)
	}

	if err != nil {
		return postgresql, databaseError(fmt.Errorf("error connecting to database: %w", err))
	}
	postgresql.pool = pool

	return postgresql, nil
}

func (pql Postgresql) GetTx(ctx context.Context) (pgx.Tx, error) {
	return pql.pool.Begin(ctx)
}
func (pql Postgresql) Commit(ctx context.Context, tx pgx.Tx) error {
	return tx.Commit(ctx)
}
func (pql Postgresql) Rollback(ctx context.Context, tx pgx.Tx) error {
	return tx.Rollback(ctx)
}
func (pql Postgresql) SubTx(ctx context.Context, tx pgx.Tx) (pgx.Tx, error) {
	return tx.Begin(ctx)
}

func (pql Postgresql) GetAllSeeds() ([]cashu.Seed, error) {
	var seeds []cashu.Seed

	rows, err := pql.pool.Query(context.Background(), `SELECT  created_at, active, version, unit, id,  "input_fee_ppk", final_expiry FROM seeds ORDER BY version DESC`)
	if err != nil {
		if err == pgx.ErrNoRows {
			return seeds, fmt.Errorf("no rows found: %w", err)
		}

		return seeds, fmt.Errorf("error checking for seeds: %w", err)
	}
	defer rows.Close()

	seeds_collect, err := pgx.CollectRows(rows, pgx.RowToStructByName[cashu.Seed])

	if err != nil {
		return seeds_collect, fmt.Errorf("collecting rows: %w", err)
	}

	return seeds_collect, nil
}

func (pql Postgresql) GetSeedsByUnit(tx pgx.Tx, unit cashu.Unit) ([]cashu.Seed, error) {
	rows, err := tx.Query(context.Background(), "SELECT  created_at, active, version, unit, id, input_fee_ppk, final_expiry FROM seeds WHERE unit = $1", unit.String())
	if err != nil {
		return []cashu.Seed{}, fmt.Errorf("error checking for active seeds: %w", err)
	}
	defer rows.Close()

	seeds, err := pgx.CollectRows(rows, pgx.RowToStructByName[cashu.Seed])

	if err != nil {
		if err == pgx.ErrNoRows {
			return seeds, nil
		}
		return seeds, databaseError(fmt.Errorf("pgx.CollectRows(rows, pgx.RowToStructByName[cashu.Seed]): %w", err))
	}

	return seeds, nil
}

// retryInsert runs fn up to three times, stopping at the first success. It
// exists because CopyFrom/Exec against a fresh connection occasionally lose
// a race against pool warmup and fail transiently on the first attempt.
func retryInsert(errMsg string, fn func() error) error {
	const maxTries = 3
	var err error
	for tries := 1; tries <= maxTries; tries++ {
		if err = fn(); err == nil {
			return nil
		}
	}
	return databaseError(fmt.Errorf("%s: %w", errMsg, err))
}

// runBatch executes batch against tx and drains its results, surfacing the
// first error any queued statement returns.
func runBatch(tx pgx.Tx, batch *pgx.Batch) error {
	results := tx.SendBatch(context.Background(), batch)
	if err := results.Close(); err != nil {
		if err == pgx.ErrNoRows {
			return err
		}
		return databaseError(fmt.Errorf("results.Close(): %w", err))
	}

	return nil
}

func (pql Postgresql) SaveNewSeed(tx pgx.Tx, seed cashu.Seed) error {
	return retryInsert("inserting to seeds", func() error {
		_, err := tx.Exec(context.Background(), "INSERT INTO seeds ( active, created_at, unit, id, version, input_fee_ppk, final_expiry) VALUES ($1, $2, $3, $4, $5, $6, $7)", seed.Active, seed.CreatedAt, seed.Unit, seed.Id, seed.Version, seed.InputFeePpk, seed.FinalExpiry)
		return err
	})
}

func (pql Postgresql) SaveNewSeeds(seeds []cashu.Seed) error {
	columns := []string{"active", "created_at", "unit", "id", "version", "input_fee_ppk", "final_expiry"}
	entries := make([][]any, len(seeds))
	for i, seed := range seeds {
		entries[i] = []any{seed.Active, seed.CreatedAt, seed.Unit, seed.Id, seed.Version, seed.InputFeePpk, seed.FinalExpiry}
	}

	return retryInsert("inserting seeds", func() error {
		_, err := pql.pool.CopyFrom(context.Background(), pgx.Identifier{"seeds"}, columns, pgx.CopyFromRows(entries))
		return err
	})
}

func (pql Postgresql) UpdateSeedsActiveStatus(tx pgx.Tx, seeds []cashu.Seed) error {
	batch := &pgx.Batch{}
	for _, seed := range seeds {
		batch.Queue("UPDATE seeds SET active = $1 WHERE id = $2", seed.Active, seed.Id)
	}
	return runBatch(tx, batch)
}

func (pql Postgresql) SaveMintRequest(tx pgx.Tx, request cashu.MintRequestDB) error {
	ctx := context.Background()

	// WARN: WrappedPubkey needs to not used it's Value function here because there are columns that are different
	// columns with string and bytea.
	var pubkeyBytes []byte
	if request.Pubkey.PublicKey != nil {
		pubkeyBytes = request.Pubkey.SerializeCompressed()
	}

	_, err := tx.Exec(ctx, "INSERT INTO mint_request (quote, request, request_paid, expiry, unit, minted, state, seen_at, amount, checking_id, pubkey, description) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)", request.Quote, request.Request, request.RequestPaid, request.Expiry, request.Unit, request.Minted, request.State, request.SeenAt, request.Amount, request.CheckingId, pubkeyBytes, request.Description)
	if err != nil {
		return databaseError(fmt.Errorf("inserting to mint_request: %w", err))

	}
	return nil
}

func (pql Postgresql) ChangeMintRequestState(tx pgx.Tx, quote string, paid bool, state cashu.ACTION_STATE, minted bool) error {
	// change the paid status of the quote
	_, err := tx.Exec(context.Background(), "UPDATE mint_request SET request_paid = $1, state = $3, minted = $4 WHERE quote = $2", paid, quote, state, minted)
	if err != nil {
		return databaseError(fmt.Errorf("inserting to mint_request: %w", err))

	}
	return nil
}

const mintRequestColumns = "quote, request, request_paid, expiry, unit, minted, state, seen_at, amount, checking_id, pubkey, description"

func scanMintRequest(rows pgx.Rows) (cashu.MintRequestDB, error) {
	var mintRequest cashu.MintRequestDB
	for rows.Next() {
		var amount *uint64
		if err := rows.Scan(&mintRequest.Quote, &mintRequest.Request, &mintRequest.RequestPaid, &mintRequest.Expiry, &mintRequest.Unit, &mintRequest.Minted, &mintRequest.State, &mintRequest.SeenAt, &amount, &mintRequest.CheckingId, &mintRequest.Pubkey, &mintRequest.Description); err != nil {
			return mintRequest, databaseError(fmt.Errorf("scanMintRequest: %w", err))
		}
		mintRequest.Amount = amount
	}
	return mintRequest, nil
}

func (pql Postgresql) GetMintRequestById(tx pgx.Tx, id string) (cashu.MintRequestDB, error) {
	rows, err := tx.Query(context.Background(), "SELECT "+mintRequestColumns+" FROM mint_request WHERE quote = $1 FOR UPDATE", id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return cashu.MintRequestDB{}, err
		}
		return cashu.MintRequestDB{}, databaseError(fmt.Errorf("tx.Query(mint_request by quote): %w", err))
	}
	defer rows.Close()

	return scanMintRequest(rows)
}

func (pql Postgresql) GetMintRequestByRequest(tx pgx.Tx, request string) (cashu.MintRequestDB, error) {
	rows, err := tx.Query(context.Background(), "SELECT "+mintRequestColumns+" FROM mint_request WHERE request = $1 FOR UPDATE", request)
	if err != nil {
		if err == pgx.ErrNoRows {
			return cashu.MintRequestDB{}, err
		}
		return cashu.MintRequestDB{}, databaseError(fmt.Errorf("tx.Query(mint_request by request): %w", err))
	}
	defer rows.Close()

	return scanMintRequest(rows)
}

func (pql Postgresql) GetMeltRequestById(tx pgx.Tx, id string) (cashu.MeltRequestDB, error) {
	rows, err := tx.Query(context.Background(), "SELECT quote, request, amount, request_paid, expiry, unit, melted, fee_reserve, state, payment_preimage, seen_at, mpp, fee_paid, checking_id  FROM melt_request WHERE quote = $1 FOR UPDATE NOWAIT", id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return cashu.MeltRequestDB{}, err
		}
	}
	defer rows.Close()

	quote, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[cashu.MeltRequestDB])

	if err != nil {
		if err == pgx.ErrNoRows {
			return cashu.MeltRequestDB{}, err
		}

		return quote, databaseError(fmt.Errorf("pgx.CollectOneRow(rows, pgx.RowToStructByName[cashu.MeltRequestDB]): %w", err))
	}

	return quote, nil
}

func (pql Postgresql) GetMeltQuotesByState(state cashu.ACTION_STATE) ([]cashu.MeltRequestDB, error) {
	rows, err := pql.pool.Query(context.Background(), "SELECT quote, request, amount, request_paid, expiry, unit, melted, fee_reserve, state, payment_preimage, seen_at, mpp, fee_paid, checking_id FROM melt_request WHERE state = $1", state)
	if err != nil {
		if err == pgx.ErrNoRows {
			return []cashu.MeltRequestDB{}, err
		}
		return nil, databaseError(fmt.Errorf("pql.pool.Query(melt_request by state): %w", err))
	}
	defer rows.Close()

	quotes, err := pgx.CollectRows(rows, pgx.RowToStructByName[cashu.MeltRequestDB])
	if err != nil {
		if err == pgx.ErrNoRows {
			return []cashu.MeltRequestDB{}, nil
		}
		return quotes, databaseError(fmt.Errorf("pgx.CollectRows(rows, pgx.RowToStructByName[cashu.MeltRequestDB]): %w", err))
	}

	return quotes, nil
}

func (pql Postgresql) SaveMeltRequest(tx pgx.Tx, request cashu.MeltRequestDB) error {
	_, err := tx.Exec(context.Background(),
		"INSERT INTO melt_request (quote, request, fee_reserve, expiry, unit, amount, request_paid, melted, state, payment_preimage, seen_at, mpp, fee_paid, checking_id) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)",
		request.Quote, request.Request, request.FeeReserve, request.Expiry, request.Unit, request.Amount, request.RequestPaid, request.Melted, request.State, request.PaymentPreimage, request.SeenAt, request.Mpp, request.FeePaid, request.CheckingId)
	if err != nil {
		return databaseError(fmt.Errorf("inserting to mint_request: %w", err))
	}
	return nil
}

func (pql Postgresql) AddPreimageMeltRequest(tx pgx.Tx, quote string, preimage string) error {
	// change the paid status of the quote
	_, err := tx.Exec(context.Background(), "UPDATE melt_request SET payment_preimage = $1 WHERE quote = $2", preimage, quote)
	if err != nil {
		return databaseError(fmt.Errorf("updating melt_request with preimage: %w", err))

	}
	return nil
}
func (pql Postgresql) ChangeMeltRequestState(tx pgx.Tx, quote string, paid bool, state cashu.ACTION_STATE, melted bool, feePaid uint64) error {
	_, err := tx.Exec(context.Background(), "UPDATE melt_request SET request_paid = $1, state = $3, melted = $4, fee_paid = $5 WHERE quote = $2", paid, quote, state, melted, feePaid)
	if err != nil {
		return databaseError(fmt.Errorf("updating melt_request state: %w", err))
	}
	return nil
}

func (pql Postgresql) ChangeCheckingId(tx pgx.Tx, quote string, checkingId string) error {
	_, err := tx.Exec(context.Background(), "UPDATE melt_request SET checking_id = $1 WHERE quote = $2", checkingId, quote)
	if err != nil {
		return databaseError(fmt.Errorf("updating melt_request checking_id: %w", err))
	}
	return nil
}

func (pql Postgresql) GetProofsFromSecret(tx pgx.Tx, SecretList []string) (cashu.Proofs, error) {

	var proofList cashu.Proofs

	ctx := context.Background()
	rows, err := tx.Query(ctx, "SELECT amount, id, secret, c, y, witness, seen_at, state, quote FROM proofs WHERE secret = ANY($1) FOR UPDATE NOWAIT", SecretList)

	if err != nil {
		if err == pgx.ErrNoRows {
			return proofList, nil
		}
		return proofList, databaseError(fmt.Errorf("query error: %w", err))
	}
	defer rows.Close()

	proof, err := pgx.CollectRows(rows, pgx.RowToStructByName[cashu.Proof])

	if err != nil {
		if err == pgx.ErrNoRows {
			return proofList, nil
		}
		return proofList, databaseError(fmt.Errorf("pgx.CollectRows(rows, pgx.RowToStructByName[cashu.Proof]): %w", err))
	}

	proofList = proof

	return proofList, nil
}

func (pql Postgresql) SaveProof(tx pgx.Tx, proofs []cashu.Proof) error {
	entries := [][]any{}
	columns := []string{"c", "secret", "amount", "id", "y", "witness", "seen_at", "state", "quote"}
	tableName := "proofs"

	for _, proof := range proofs {
		C := proof.C.String()
		entries = append(entries, []any{C, proof.Secret, proof.Amount, proof.Id, proof.Y, proof.Witness, proof.SeenAt, proof.State, proof.Quote})
	}

	_, err := tx.CopyFrom(context.Background(), pgx.Identifier{tableName}, columns, pgx.CopyFromRows(entries))

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return cashu.ErrProofSpent
		}

		return databaseError(fmt.Errorf("inserting to DB: %w", err))
	}
	return nil
}

func (pql Postgresql) GetProofsFromSecretCurve(tx pgx.Tx, Ys []cashu.WrappedPublicKey) (cashu.Proofs, error) {

	var proofList cashu.Proofs

	rows, err := tx.Query(context.Background(), `SELECT amount, id, secret, c, y, witness, seen_at, state, quote FROM proofs WHERE y = ANY($1) FOR UPDATE NOWAIT`, Ys)

	if err != nil {

		if err == pgx.ErrNoRows {
			return proofList, nil
		}
	}
	defer rows.Close()

	proof, err := pgx.CollectRows(rows, pgx.RowToStructByName[cashu.Proof])

	if err != nil {
		if err == pgx.ErrNoRows {
			return proofList, nil
		}
		return proofList, fmt.Errorf("pgx.CollectRows(rows, pgx.RowToStructByName[cashu.Proof]): %w", err)
	}

	proofList = proof

	return proofList, nil
}

func (pql Postgresql) GetProofsFromQuote(tx pgx.Tx, quote string) (cashu.Proofs, error) {

	var proofList cashu.Proofs

	rows, err := tx.Query(context.Background(), `SELECT amount, id, secret, c, y, witness, seen_at, state, quote FROM proofs WHERE quote = $1 FOR UPDATE NOWAIT`, quote)
	if err != nil {
		if err == pgx.ErrNoRows {
			return proofList, nil
		}
		return proofList, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	proof, err := pgx.CollectRows(rows, pgx.RowToStructByName[cashu.Proof])
	if err != nil {
		if err == pgx.ErrNoRows {
			return proofList, nil
		}
		return proofList, fmt.Errorf("pgx.CollectRows(rows, pgx.RowToStructByName[cashu.Proof]): %w", err)
	}

	proofList = proof

	return proofList, nil
}
func (pql Postgresql) SetProofsState(tx pgx.Tx, proofs cashu.Proofs, state cashu.ProofState) error {
	batch := &pgx.Batch{}
	for _, proof := range proofs {
		batch.Queue(`UPDATE proofs SET state = $1 WHERE y = $2`, state, proof.Y)
	}
	return runBatch(tx, batch)
}

func (pql Postgresql) DeleteProofs(tx pgx.Tx, proofs cashu.Proofs) error {
	batch := &pgx.Batch{}
	for _, proof := range proofs {
		batch.Queue(`DELETE FROM proofs WHERE y = $1`, proof.Y)
	}
	return runBatch(tx, batch)
}

// dleqFromHex rebuilds a BlindSignatureDLEQ from its hex-encoded private key
// fields, returning a nil DLEQ when either field is absent.
func dleqFromHex(eHex, sHex *string) (*cashu.BlindSignatureDLEQ, error) {
	if eHex == nil || sHex == nil || *eHex == "" || *sHex == "" {
		return nil, nil
	}

	eBytes, err := hex.DecodeString(*eHex)
	if err != nil {
		return nil, errors.New("failed to decode dleq 'e' field")
	}
	sBytes, err := hex.DecodeString(*sHex)
	if err != nil {
		return nil, errors.New("failed to decode dleq 's' field")
	}

	return &cashu.BlindSignatureDLEQ{
		E: secp256k1.PrivKeyFromBytes(eBytes),
		S: secp256k1.PrivKeyFromBytes(sBytes),
	}, nil
}

func (pql Postgresql) GetRestoreSigsFromBlindedMessages(tx pgx.Tx, blindedMessages []string) ([]cashu.RecoverSigDB, error) {
	rows, err := tx.Query(context.Background(), `SELECT id, amount, "C_", "B_", created_at, dleq_e, dleq_s FROM recovery_signature WHERE "B_" = ANY($1)`, blindedMessages)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, databaseError(fmt.Errorf("error checking for recovery_signature: %w", err))
	}
	defer rows.Close()

	signatures := make([]cashu.RecoverSigDB, 0)
	for rows.Next() {
		var sig cashu.RecoverSigDB
		var dleqE, dleqS *string
		if err := rows.Scan(&sig.Id, &sig.Amount, &sig.C_, &sig.B_, &sig.CreatedAt, &dleqE, &dleqS); err != nil {
			return nil, databaseError(fmt.Errorf("rows.Scan(recovery_signature): %w", err))
		}

		sig.Dleq, err = dleqFromHex(dleqE, dleqS)
		if err != nil {
			return nil, databaseError(fmt.Errorf("dleqFromHex: %w", err))
		}

		signatures = append(signatures, sig)
	}

	return signatures, nil
}

func (pql Postgresql) SaveRestoreSigs(tx pgx.Tx, recoverSigs []cashu.RecoverSigDB) error {
	columns := []string{"id", "amount", "B_", "C_", "created_at", "dleq_e", "dleq_s"}
	entries := make([][]any, len(recoverSigs))
	for i, sig := range recoverSigs {
		dleqE := sig.Dleq.E.Key.Bytes()
		dleqS := sig.Dleq.S.Key.Bytes()
		entries[i] = []any{sig.Id, sig.Amount, sig.B_, sig.C_, sig.CreatedAt, hex.EncodeToString(dleqE[:]), hex.EncodeToString(dleqS[:])}
	}

	return retryInsert("inserting to recovery_signature", func() error {
		_, err := tx.CopyFrom(context.Background(), pgx.Identifier{"recovery_signature"}, columns, pgx.CopyFromRows(entries))
		return err
	})
}

func (pql Postgresql) GetMintMeltBalanceByTime(time int64) (database.MintMeltBalance, error) {
	var balance database.MintMeltBalance

	mintRows, err := pql.pool.Query(context.Background(), "SELECT quote, request, request_paid, expiry, unit, minted, state, seen_at, amount, checking_id, pubkey, description FROM mint_request WHERE seen_at >= $1 AND (state = $2 OR state = $3)", time, cashu.PAID, cashu.ISSUED)
	if err != nil {
		return balance, databaseError(fmt.Errorf("pql.pool.Query mint_request: %w", err))
	}
	defer mintRows.Close()

	balance.Mint, err = pgx.CollectRows(mintRows, pgx.RowToStructByName[cashu.MintRequestDB])
	if err != nil && err != pgx.ErrNoRows {
		return balance, databaseError(fmt.Errorf("pgx.CollectRows mint_request: %w", err))
	}

	meltRows, err := pql.pool.Query(context.Background(), "SELECT quote, request, amount, request_paid, expiry, unit, melted, fee_reserve, state, payment_preimage, seen_at, mpp, fee_paid, checking_id FROM melt_request WHERE seen_at >= $1 AND (state = $2 OR state = $3)", time, cashu.PAID, cashu.ISSUED)
	if err != nil {
		return balance, databaseError(fmt.Errorf("pql.pool.Query melt_request: %w", err))
	}
	defer meltRows.Close()

	balance.Melt, err = pgx.CollectRows(meltRows, pgx.RowToStructByName[cashu.MeltRequestDB])
	if err != nil && err != pgx.ErrNoRows {
		return balance, databaseError(fmt.Errorf("pgx.CollectRows melt_request: %w", err))
	}

	return balance, nil
}

func (pql Postgresql) GetProofsMintReserve() (database.MintReserve, error) {
	var reserve database.MintReserve

	row := pql.pool.QueryRow(context.Background(), `SELECT COALESCE(SUM(amount), 0) FROM proofs`)
	if err := row.Scan(&reserve.Amount); err != nil {
		return reserve, databaseError(fmt.Errorf("row.Scan(&reserve.Amount): %w", err))
	}

	return reserve, nil
}

func (pql Postgresql) GetBlindSigsMintReserve() (database.MintReserve, error) {
	var reserve database.MintReserve

	row := pql.pool.QueryRow(context.Background(), `SELECT COALESCE(SUM(amount), 0) FROM recovery_signature`)
	if err := row.Scan(&reserve.Amount); err != nil {
		return reserve, databaseError(fmt.Errorf("row.Scan(&reserve.Amount): %w", err))
	}

	return reserve, nil
}

// timeSeriesByBucket groups table's timeColumn into bucketMinutes-wide
// buckets from since up to now, summing amount and counting rows per bucket.
// Proofs and recovery signatures both report reserve growth on this shape,
// just against different tables and timestamp columns.
func (pql Postgresql) timeSeriesByBucket(table, timeColumn string, since int64, bucketMinutes int) ([]database.ProofTimeSeriesPoint, error) {
	var points []database.ProofTimeSeriesPoint
	bucketSeconds := int64(bucketMinutes * 60)

	// Floor division buckets rows by (timeColumn / bucketSeconds) * bucketSeconds.
	query := fmt.Sprintf(`SELECT
				(%[1]s / $3) * $3 as bucket_timestamp,
				COALESCE(SUM(amount), 0) as total_amount,
				COUNT(*) as count
			 FROM %[2]s
			 WHERE %[1]s >= $1 AND %[1]s < $2
			 GROUP BY bucket_timestamp
			 ORDER BY bucket_timestamp ASC`, timeColumn, table)

	rows, err := pql.pool.Query(context.Background(), query, since, time.Now().Unix(), bucketSeconds)
	if err != nil {
		if err == pgx.ErrNoRows {
			return points, nil
		}
		return points, databaseError(fmt.Errorf("timeSeriesByBucket(%s) query error: %w", table, err))
	}
	defer rows.Close()

	for rows.Next() {
		var point database.ProofTimeSeriesPoint
		if err := rows.Scan(&point.Timestamp, &point.TotalAmount, &point.Count); err != nil {
			return points, databaseError(fmt.Errorf("timeSeriesByBucket(%s) scan error: %w", table, err))
		}
		points = append(points, point)
	}

	return points, nil
}

func (pql Postgresql) GetProofsTimeSeries(since int64, bucketMinutes int) ([]database.ProofTimeSeriesPoint, error) {
	return pql.timeSeriesByBucket("proofs", "seen_at", since, bucketMinutes)
}

func (pql Postgresql) GetBlindSigsTimeSeries(since int64, bucketMinutes int) ([]database.ProofTimeSeriesPoint, error) {
	return pql.timeSeriesByBucket("recovery_signature", "created_at", since, bucketMinutes)
}

func (pql Postgresql) GetProofsCountByKeyset(since time.Time) (map[string]database.ProofsCountByKeyset, error) {
	results := make(map[string]database.ProofsCountByKeyset)

	rows, err := pql.pool.Query(context.Background(), `SELECT id, COALESCE(SUM(amount), 0), COUNT(*) FROM proofs WHERE seen_at >= $1 GROUP BY id`, since.Unix())
	if err != nil {
		if err == pgx.ErrNoRows {
			return results, nil
		}
		return results, databaseError(fmt.Errorf("GetProofsCountByKeyset query error: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var item database.ProofsCountByKeyset
		if err := rows.Scan(&item.KeysetId, &item.TotalAmount, &item.Count); err != nil {
			return results, databaseError(fmt.Errorf("GetProofsCountByKeyset scan error: %w", err))
		}
		results[item.KeysetId] = item
	}

	return results, nil
}

func (pql Postgresql) GetBlindSigsCountByKeyset(since time.Time) (map[string]database.BlindSigsCountByKeyset, error) {
	results := make(map[string]database.BlindSigsCountByKeyset)

	rows, err := pql.pool.Query(context.Background(), `SELECT id, COALESCE(SUM(amount), 0), COUNT(*) FROM recovery_signature WHERE created_at >= $1 GROUP BY id`, since.Unix())
	if err != nil {
		if err == pgx.ErrNoRows {
			return results, nil
		}
		return results, databaseError(fmt.Errorf("GetBlindSigsCountByKeyset query error: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var item database.BlindSigsCountByKeyset
		if err := rows.Scan(&item.KeysetId, &item.TotalAmount, &item.Count); err != nil {
			return results, databaseError(fmt.Errorf("GetBlindSigsCountByKeyset scan error: %w", err))
		}
		results[item.KeysetId] = item
	}

	return results, nil
}

func (pql Postgresql) Close() {
	pql.pool.Close()
}
