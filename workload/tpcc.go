package workload

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hhkbp2/yahb"
	"github.com/pkg/errors"
)

const (
	// Percent of NewOrder transactions ordering an unused item.
	PropertyNewOrderRollback        = "tpcc.neworder.rollback"
	PropertyNewOrderRollbackDefault = "1"
	// Bounds of the number of order lines of a new order.
	PropertyNewOrderMinItems        = "tpcc.neworder.minitems"
	PropertyNewOrderMinItemsDefault = "5"
	PropertyNewOrderMaxItems        = "tpcc.neworder.maxitems"
	PropertyNewOrderMaxItemsDefault = "15"
	// Percent of order lines supplied by a remote warehouse.
	PropertyNewOrderRemote        = "tpcc.neworder.remote"
	PropertyNewOrderRemoteDefault = "1"
	// Percent of payments to a customer of a remote warehouse.
	PropertyPaymentRemote        = "tpcc.payment.remote"
	PropertyPaymentRemoteDefault = "15"
	// Percent of Payment and OrderStatus selecting the customer by last name.
	PropertyByName        = "tpcc.byname"
	PropertyByNameDefault = "60"
)

func getPercent(p yahb.Properties, key, defaultValue string) (int64, error) {
	v, err := p.GetInt64(key, defaultValue)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 100 {
		return 0, yahb.NewConfigError("%s must be in [0, 100], got %d", key, v)
	}
	return v, nil
}

// customerSelector picks the customer of Payment and OrderStatus, by last
// name or by id.
type customerSelector struct {
	byName int64
}

func (self *customerSelector) init(p yahb.Properties) error {
	byName, err := getPercent(p, PropertyByName, PropertyByNameDefault)
	if err != nil {
		return err
	}
	self.byName = byName
	return nil
}

// selectCustomer returns the id of the chosen customer. Customers found by
// name are ordered by first name and the one in the middle is taken.
func (self *customerSelector) selectCustomer(ctx context.Context, tx yahb.Tx, env *yahb.TxEnv, w, d int64) (int64, error) {
	if !percent(env, self.byName) {
		return customerIDs.NextInt(), nil
	}
	last := LastName(lastNames.NextInt())
	rows, err := tx.Query(ctx,
		"SELECT c_id FROM customer WHERE c_w_id = ? AND c_d_id = ? AND c_last = ? ORDER BY c_first",
		w, d, last)
	if err != nil {
		return 0, errors.Wrap(err, "select customer by name")
	}
	defer rows.Close()
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, errors.Wrapf(sql.ErrNoRows, "customer %s in %d/%d", last, w, d)
	}
	return ids[(len(ids)-1)/2], nil
}

type NewOrder struct {
	*procedureBase
	rollback int64
	minItems int64
	maxItems int64
	remote   int64
}

func NewNewOrder() *NewOrder {
	return &NewOrder{
		procedureBase: &procedureBase{
			name:       "NewOrder",
			kind:       yahb.KindOLTP,
			keyingTime: 18 * time.Second,
			thinkTime:  12 * time.Second,
		},
	}
}

func (self *NewOrder) Init(p yahb.Properties) error {
	var err error
	if self.rollback, err = getPercent(p, PropertyNewOrderRollback, PropertyNewOrderRollbackDefault); err != nil {
		return err
	}
	if self.remote, err = getPercent(p, PropertyNewOrderRemote, PropertyNewOrderRemoteDefault); err != nil {
		return err
	}
	if self.minItems, err = p.GetInt64(PropertyNewOrderMinItems, PropertyNewOrderMinItemsDefault); err != nil {
		return err
	}
	if self.maxItems, err = p.GetInt64(PropertyNewOrderMaxItems, PropertyNewOrderMaxItemsDefault); err != nil {
		return err
	}
	if self.minItems < 1 || self.maxItems < self.minItems {
		return yahb.NewConfigError("invalid order line bounds [%d, %d]", self.minItems, self.maxItems)
	}
	return nil
}

type orderLine struct {
	itemID   int64
	supplyW  int64
	quantity int64
}

func (self *NewOrder) Execute(ctx context.Context, db yahb.DB, env *yahb.TxEnv) error {
	w := env.Warehouse
	d := env.District()
	c := customerIDs.NextInt()
	lines := make([]orderLine, env.RandInt(self.minItems, self.maxItems))
	allLocal := 1
	for i := range lines {
		lines[i] = orderLine{
			itemID:   itemIDs.NextInt(),
			supplyW:  w,
			quantity: env.RandInt(1, 10),
		}
		if env.Warehouses > 1 && percent(env, self.remote) {
			lines[i].supplyW = otherWarehouse(env)
			allLocal = 0
		}
	}
	if percent(env, self.rollback) {
		// an unused item makes the transaction roll back
		lines[len(lines)-1].itemID = Items + 1
	}

	return db.RunTx(ctx, func(tx yahb.Tx) error {
		var discount, wTax, dTax float64
		var cLast, cCredit string
		err := queryRow(ctx, tx,
			"SELECT c_discount, c_last, c_credit, w_tax FROM customer, warehouse"+
				" WHERE w_id = ? AND c_w_id = w_id AND c_d_id = ? AND c_id = ?",
			args(w, d, c), &discount, &cLast, &cCredit, &wTax)
		if err != nil {
			return err
		}
		var oid int64
		err = queryRow(ctx, tx,
			"SELECT d_next_o_id, d_tax FROM district WHERE d_w_id = ? AND d_id = ? FOR UPDATE",
			args(w, d), &oid, &dTax)
		if err != nil {
			return err
		}
		err = execOne(ctx, tx,
			"UPDATE district SET d_next_o_id = d_next_o_id + 1 WHERE d_w_id = ? AND d_id = ?", w, d)
		if err != nil {
			return err
		}
		entry := yahb.MillisToTime(env.NewOrderTick())
		err = execOne(ctx, tx,
			"INSERT INTO oorder (o_id, o_d_id, o_w_id, o_c_id, o_entry_d, o_ol_cnt, o_all_local)"+
				" VALUES (?, ?, ?, ?, ?, ?, ?)",
			oid, d, w, c, entry, len(lines), allLocal)
		if err != nil {
			return err
		}
		err = execOne(ctx, tx,
			"INSERT INTO new_order (no_o_id, no_d_id, no_w_id) VALUES (?, ?, ?)", oid, d, w)
		if err != nil {
			return err
		}

		for i, line := range lines {
			var price float64
			var name, data string
			err = tx.QueryRow(ctx, "SELECT i_price, i_name, i_data FROM item WHERE i_id = ?",
				line.itemID).Scan(&price, &name, &data)
			if err == sql.ErrNoRows {
				return errors.Wrapf(yahb.ErrUserAbort, "item %d not found", line.itemID)
			}
			if err != nil {
				return errors.Wrap(err, "select item")
			}
			var quantity int64
			var distInfo string
			err = queryRow(ctx, tx,
				fmt.Sprintf("SELECT s_quantity, s_dist_%02d FROM stock WHERE s_i_id = ? AND s_w_id = ? FOR UPDATE", d),
				args(line.itemID, line.supplyW), &quantity, &distInfo)
			if err != nil {
				return err
			}
			if quantity-line.quantity >= 10 {
				quantity -= line.quantity
			} else {
				quantity += 91 - line.quantity
			}
			remote := 0
			if line.supplyW != w {
				remote = 1
			}
			err = execOne(ctx, tx,
				"UPDATE stock SET s_quantity = ?, s_ytd = s_ytd + ?, s_order_cnt = s_order_cnt + 1,"+
					" s_remote_cnt = s_remote_cnt + ? WHERE s_i_id = ? AND s_w_id = ?",
				quantity, line.quantity, remote, line.itemID, line.supplyW)
			if err != nil {
				return err
			}
			amount := float64(line.quantity) * price * (1 + wTax + dTax) * (1 - discount)
			err = execOne(ctx, tx,
				"INSERT INTO order_line (ol_o_id, ol_d_id, ol_w_id, ol_number, ol_i_id, ol_supply_w_id,"+
					" ol_quantity, ol_amount, ol_dist_info) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
				oid, d, w, i+1, line.itemID, line.supplyW, line.quantity, amount, distInfo)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type Payment struct {
	*procedureBase
	customerSelector
	remote int64
}

func NewPayment() *Payment {
	return &Payment{
		procedureBase: &procedureBase{
			name:       "Payment",
			kind:       yahb.KindOLTP,
			keyingTime: 3 * time.Second,
			thinkTime:  12 * time.Second,
		},
	}
}

func (self *Payment) Init(p yahb.Properties) error {
	var err error
	if self.remote, err = getPercent(p, PropertyPaymentRemote, PropertyPaymentRemoteDefault); err != nil {
		return err
	}
	return self.customerSelector.init(p)
}

func (self *Payment) Execute(ctx context.Context, db yahb.DB, env *yahb.TxEnv) error {
	w := env.Warehouse
	d := env.District()
	cW, cD := w, d
	if env.Warehouses > 1 && percent(env, self.remote) {
		cW = otherWarehouse(env)
		cD = env.RandInt(1, yahb.DistrictsPerWarehouse)
	}
	amount := float64(env.RandInt(100, 500000)) / 100

	return db.RunTx(ctx, func(tx yahb.Tx) error {
		err := execOne(ctx, tx, "UPDATE warehouse SET w_ytd = w_ytd + ? WHERE w_id = ?", amount, w)
		if err != nil {
			return err
		}
		var wName, dName string
		if err = queryRow(ctx, tx, "SELECT w_name FROM warehouse WHERE w_id = ?", args(w), &wName); err != nil {
			return err
		}
		err = execOne(ctx, tx,
			"UPDATE district SET d_ytd = d_ytd + ? WHERE d_w_id = ? AND d_id = ?", amount, w, d)
		if err != nil {
			return err
		}
		err = queryRow(ctx, tx, "SELECT d_name FROM district WHERE d_w_id = ? AND d_id = ?",
			args(w, d), &dName)
		if err != nil {
			return err
		}
		c, err := self.selectCustomer(ctx, tx, env, cW, cD)
		if err != nil {
			return err
		}
		var credit string
		err = queryRow(ctx, tx,
			"SELECT c_credit FROM customer WHERE c_w_id = ? AND c_d_id = ? AND c_id = ? FOR UPDATE",
			args(cW, cD, c), &credit)
		if err != nil {
			return err
		}
		if credit == "BC" {
			info := fmt.Sprintf("%d %d %d %d %d %.2f | ", c, cD, cW, d, w, amount)
			err = execOne(ctx, tx,
				"UPDATE customer SET c_balance = c_balance - ?, c_ytd_payment = c_ytd_payment + ?,"+
					" c_payment_cnt = c_payment_cnt + 1, c_data = SUBSTR(CONCAT(?, c_data), 1, 500)"+
					" WHERE c_w_id = ? AND c_d_id = ? AND c_id = ?",
				amount, amount, info, cW, cD, c)
		} else {
			err = execOne(ctx, tx,
				"UPDATE customer SET c_balance = c_balance - ?, c_ytd_payment = c_ytd_payment + ?,"+
					" c_payment_cnt = c_payment_cnt + 1 WHERE c_w_id = ? AND c_d_id = ? AND c_id = ?",
				amount, amount, cW, cD, c)
		}
		if err != nil {
			return err
		}
		date := yahb.MillisToTime(env.Tick())
		return execOne(ctx, tx,
			"INSERT INTO history (h_c_d_id, h_c_w_id, h_c_id, h_d_id, h_w_id, h_date, h_amount, h_data)"+
				" VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			cD, cW, c, d, w, date, amount, wName+"    "+dName)
	})
}

type OrderStatus struct {
	*procedureBase
	customerSelector
}

func NewOrderStatus() *OrderStatus {
	return &OrderStatus{
		procedureBase: &procedureBase{
			name:       "OrderStatus",
			kind:       yahb.KindOLTP,
			keyingTime: 2 * time.Second,
			thinkTime:  10 * time.Second,
		},
	}
}

func (self *OrderStatus) Init(p yahb.Properties) error {
	return self.customerSelector.init(p)
}

func (self *OrderStatus) Execute(ctx context.Context, db yahb.DB, env *yahb.TxEnv) error {
	w := env.Warehouse
	d := env.District()
	return db.RunTx(ctx, func(tx yahb.Tx) error {
		c, err := self.selectCustomer(ctx, tx, env, w, d)
		if err != nil {
			return err
		}
		var balance float64
		var first, middle, last string
		err = queryRow(ctx, tx,
			"SELECT c_first, c_middle, c_last, c_balance FROM customer"+
				" WHERE c_w_id = ? AND c_d_id = ? AND c_id = ?",
			args(w, d, c), &first, &middle, &last, &balance)
		if err != nil {
			return err
		}
		var oid int64
		var carrier sql.NullInt64
		err = queryRow(ctx, tx,
			"SELECT o_id, o_carrier_id FROM oorder WHERE o_w_id = ? AND o_d_id = ? AND o_c_id = ?"+
				" ORDER BY o_id DESC LIMIT 1",
			args(w, d, c), &oid, &carrier)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx,
			"SELECT ol_i_id, ol_supply_w_id, ol_quantity, ol_amount FROM order_line"+
				" WHERE ol_o_id = ? AND ol_d_id = ? AND ol_w_id = ?",
			oid, d, w)
		if err != nil {
			return errors.Wrap(err, "select order lines")
		}
		defer rows.Close()
		for rows.Next() {
			var item, supplyW, quantity int64
			var amount float64
			if err = rows.Scan(&item, &supplyW, &quantity, &amount); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

type Delivery struct {
	*procedureBase
}

func NewDelivery() *Delivery {
	return &Delivery{
		procedureBase: &procedureBase{
			name:       "Delivery",
			kind:       yahb.KindOLTP,
			keyingTime: 2 * time.Second,
			thinkTime:  5 * time.Second,
		},
	}
}

// Execute delivers the oldest undelivered order of every district of the
// warehouse. A district without one is skipped.
func (self *Delivery) Execute(ctx context.Context, db yahb.DB, env *yahb.TxEnv) error {
	w := env.Warehouse
	carrier := env.RandInt(1, 10)
	return db.RunTx(ctx, func(tx yahb.Tx) error {
		date := yahb.MillisToTime(env.Tick())
		for d := int64(1); d <= yahb.DistrictsPerWarehouse; d++ {
			var oid int64
			err := tx.QueryRow(ctx,
				"SELECT no_o_id FROM new_order WHERE no_d_id = ? AND no_w_id = ? ORDER BY no_o_id ASC LIMIT 1",
				d, w).Scan(&oid)
			if err == sql.ErrNoRows {
				continue
			}
			if err != nil {
				return errors.Wrap(err, "select new order")
			}
			// no row means another delivery took the order under our feet
			err = execOne(ctx, tx,
				"DELETE FROM new_order WHERE no_o_id = ? AND no_d_id = ? AND no_w_id = ?", oid, d, w)
			if err != nil {
				return err
			}
			var c int64
			err = queryRow(ctx, tx, "SELECT o_c_id FROM oorder WHERE o_id = ? AND o_d_id = ? AND o_w_id = ?",
				args(oid, d, w), &c)
			if err != nil {
				return err
			}
			err = execOne(ctx, tx,
				"UPDATE oorder SET o_carrier_id = ? WHERE o_id = ? AND o_d_id = ? AND o_w_id = ?",
				carrier, oid, d, w)
			if err != nil {
				return err
			}
			affected, err := exec(ctx, tx,
				"UPDATE order_line SET ol_delivery_d = ? WHERE ol_o_id = ? AND ol_d_id = ? AND ol_w_id = ?",
				date, oid, d, w)
			if err != nil {
				return err
			}
			if affected == 0 {
				return errors.Wrapf(yahb.ErrInconsistent, "order %d/%d/%d has no lines", w, d, oid)
			}
			var total float64
			err = queryRow(ctx, tx,
				"SELECT SUM(ol_amount) FROM order_line WHERE ol_o_id = ? AND ol_d_id = ? AND ol_w_id = ?",
				args(oid, d, w), &total)
			if err != nil {
				return err
			}
			err = execOne(ctx, tx,
				"UPDATE customer SET c_balance = c_balance + ?, c_delivery_cnt = c_delivery_cnt + 1"+
					" WHERE c_w_id = ? AND c_d_id = ? AND c_id = ?",
				total, w, d, c)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type StockLevel struct {
	*procedureBase
}

func NewStockLevel() *StockLevel {
	return &StockLevel{
		procedureBase: &procedureBase{
			name:       "StockLevel",
			kind:       yahb.KindOLTP,
			keyingTime: 2 * time.Second,
			thinkTime:  5 * time.Second,
		},
	}
}

func (self *StockLevel) Execute(ctx context.Context, db yahb.DB, env *yahb.TxEnv) error {
	w := env.Warehouse
	d := env.District()
	threshold := env.RandInt(10, 20)
	return db.RunTx(ctx, func(tx yahb.Tx) error {
		var next int64
		err := queryRow(ctx, tx, "SELECT d_next_o_id FROM district WHERE d_w_id = ? AND d_id = ?",
			args(w, d), &next)
		if err != nil {
			return err
		}
		var low int64
		return queryRow(ctx, tx,
			"SELECT COUNT(DISTINCT s_i_id) FROM order_line, stock"+
				" WHERE ol_w_id = ? AND ol_d_id = ? AND ol_o_id < ? AND ol_o_id >= ?"+
				" AND s_w_id = ? AND s_i_id = ol_i_id AND s_quantity < ?",
			args(w, d, next, next-20, w, threshold), &low)
	})
}
