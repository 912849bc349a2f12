package mysql

const upsertPropertySQL = `
INSERT INTO properties
  (id, title, address, city, state, zip_code, price, bedrooms, bathrooms,
   square_feet, property_type, listing_type, description, images, amenities,
   year_built, parking, pet_friendly, date_listed, contact_name, contact_phone,
   contact_email, lat, lon)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  title         = VALUES(title),
  address       = VALUES(address),
  city          = VALUES(city),
  state         = VALUES(state),
  zip_code      = VALUES(zip_code),
  price         = VALUES(price),
  bedrooms      = VALUES(bedrooms),
  bathrooms     = VALUES(bathrooms),
  square_feet   = VALUES(square_feet),
  property_type = VALUES(property_type),
  listing_type  = VALUES(listing_type),
  description   = VALUES(description),
  images        = VALUES(images),
  amenities     = VALUES(amenities),
  year_built    = VALUES(year_built),
  parking       = VALUES(parking),
  pet_friendly  = VALUES(pet_friendly),
  date_listed   = VALUES(date_listed),
  contact_name  = VALUES(contact_name),
  contact_phone = VALUES(contact_phone),
  contact_email = VALUES(contact_email),
  lat           = VALUES(lat),
  lon           = VALUES(lon),
  updated_at    = CURRENT_TIMESTAMP
`

const propertyColumns = `
  id, title, address, city, state, zip_code, price, bedrooms, bathrooms,
  square_feet, property_type, listing_type, description, images, amenities,
  year_built, parking, pet_friendly, date_listed, contact_name, contact_phone,
  contact_email, lat, lon`

const getPropertySQL = `SELECT` + propertyColumns + `
FROM properties WHERE id = ?`

const listPropertiesSQL = `SELECT` + propertyColumns + `
FROM properties ORDER BY id LIMIT ?`

// `comment` is fine unquoted, but keep review columns explicit everywhere.
const reviewColumns = `id, property_id, user_id, user_name, user_avatar, rating, comment, updated_at`

const insertReviewSQL = `
INSERT INTO reviews (` + reviewColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const getReviewSQL = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`

// Newest first; aligns with the index on (property_id, updated_at, id).
const listReviewsByPropertySQL = `SELECT ` + reviewColumns + `
FROM reviews WHERE property_id = ? ORDER BY updated_at DESC, id DESC`

const listReviewsByUserSQL = `SELECT ` + reviewColumns + `
FROM reviews WHERE user_id = ? ORDER BY updated_at DESC, id DESC`

const updateReviewSQL = `
UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?
`

const deleteReviewSQL = `DELETE FROM reviews WHERE id = ?`

const addFavoriteSQL = `
INSERT INTO favorites (user_id, property_id)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE saved_at = favorites.saved_at
`

const removeFavoriteSQL = `DELETE FROM favorites WHERE user_id = ? AND property_id = ?`

const listFavoritesSQL = `
SELECT user_id, property_id, saved_at
FROM favorites WHERE user_id = ?
ORDER BY saved_at DESC, property_id DESC
`

const countFavoritesSQL = `SELECT COUNT(*) FROM favorites WHERE user_id = ?`
