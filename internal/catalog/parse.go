package catalog

import (
	"io"

	"github.com/BradenHooton/swgfv/internal/models"
)

var monthColumns = [12][]string{
	{"ene", "enero", "jan", "january"},
	{"feb", "febrero", "february"},
	{"mar", "marzo", "march"},
	{"abr", "abril", "apr", "april"},
	{"may", "mayo"},
	{"jun", "junio", "june"},
	{"jul", "julio", "july"},
	{"ago", "agosto", "aug", "august"},
	{"sep", "septiembre", "sept", "september"},
	{"oct", "octubre", "october"},
	{"nov", "noviembre", "november"},
	{"dic", "diciembre", "dec", "december"},
}

// ParsePanels reads solar panels keyed by module id. Rows without a module
// id, brand or model are skipped.
func ParsePanels(r io.Reader) (*Result[models.SolarPanel], error) {
	t, err := openTable(r)
	if err != nil {
		return nil, err
	}

	res := &Result[models.SolarPanel]{}
	err = t.each(func(rec row) {
		moduleID, ok, err := rec.integer("PK Id_modulo", "id_modulo", "module_id", "module id")
		if err != nil {
			res.skip(rec.line, "module id: %v", err)
			return
		}
		if !ok {
			res.skip(rec.line, "missing module id")
			return
		}

		p := models.SolarPanel{
			ModuleID: moduleID,
			Brand:    rec.text("marca", "brand"),
			Model:    rec.text("modelo", "model"),
		}
		if p.Brand == "" || p.Model == "" {
			res.skip(rec.line, "missing brand or model")
			return
		}

		if p.PowerW, _, err = rec.number("potencia", "power", "power_w"); err != nil {
			res.skip(rec.line, "power: %v", err)
			return
		}
		for _, f := range []struct {
			dst  **float64
			name string
		}{{&p.Voc, "voc"}, {&p.Isc, "isc"}, {&p.Vmp, "vmp"}, {&p.Imp, "imp"}} {
			if *f.dst, err = rec.optional(f.name); err != nil {
				res.skip(rec.line, "%s: %v", f.name, err)
				return
			}
		}
		res.Items = append(res.Items, p)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ParseInverters reads string inverters keyed by brand and model.
func ParseInverters(r io.Reader) (*Result[models.Inverter], error) {
	t, err := openTable(r)
	if err != nil {
		return nil, err
	}

	res := &Result[models.Inverter]{}
	err = t.each(func(rec row) {
		inv := models.Inverter{
			Brand:         rec.text("marca", "brand"),
			Model:         rec.text("modelo", "model"),
			OutputVoltage: rec.text("voltaje nominal", "voltaje salida", "output voltage", "nominal voltage"),
		}
		if inv.Brand == "" || inv.Model == "" {
			res.skip(rec.line, "missing brand or model")
			return
		}
		var err error
		if inv.PowerW, _, err = rec.number("potencia", "power", "power_w"); err != nil {
			res.skip(rec.line, "power: %v", err)
			return
		}
		res.Items = append(res.Items, inv)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ParseMicroInverters reads micro-inverters keyed by brand and model. A
// missing channel count defaults to one.
func ParseMicroInverters(r io.Reader) (*Result[models.MicroInverter], error) {
	t, err := openTable(r)
	if err != nil {
		return nil, err
	}

	res := &Result[models.MicroInverter]{}
	err = t.each(func(rec row) {
		m := models.MicroInverter{
			Brand:    rec.text("marca", "brand"),
			Model:    rec.text("modelo", "model"),
			Channels: 1,
		}
		if m.Brand == "" || m.Model == "" {
			res.skip(rec.line, "missing brand or model")
			return
		}
		var err error
		if m.PowerW, _, err = rec.number("potencia", "power", "power_w"); err != nil {
			res.skip(rec.line, "power: %v", err)
			return
		}
		channels, ok, err := rec.integer("no mppt", "canales", "channels", "mppt")
		if err != nil {
			res.skip(rec.line, "channels: %v", err)
			return
		}
		if ok {
			m.Channels = int(channels)
		}
		res.Items = append(res.Items, m)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ParseIrradiance reads peak-sun-hour tables keyed by city and state. Empty
// numeric cells read as zero.
func ParseIrradiance(r io.Reader) (*Result[models.Irradiance], error) {
	t, err := openTable(r)
	if err != nil {
		return nil, err
	}

	res := &Result[models.Irradiance]{}
	err = t.each(func(rec row) {
		irr := models.Irradiance{
			City:   rec.text("ciudad", "city"),
			State:  rec.text("estado", "state"),
			Region: rec.text("region"),
			Tariff: rec.text("tarifa", "tariff"),
		}
		if irr.City == "" {
			res.skip(rec.line, "missing city")
			return
		}

		var err error
		if irr.Average, _, err = rec.number("promedio", "average"); err != nil {
			res.skip(rec.line, "average: %v", err)
			return
		}
		for i, names := range monthColumns {
			if irr.Monthly[i], _, err = rec.number(names...); err != nil {
				res.skip(rec.line, "%s: %v", names[0], err)
				return
			}
		}
		res.Items = append(res.Items, irr)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
