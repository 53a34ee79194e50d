package route

const directionsFixture = `{
  "code": "Ok",
  "routes": [{
    "distance": 401.2,
    "duration": 52.3,
    "legs": [{
      "summary": "Main Street, Church Street",
      "distance": 401.2,
      "duration": 52.3,
      "steps": [
        {
          "name": "Main Street",
          "mode": "driving",
          "distance": 200.1,
          "duration": 25.0,
          "geometry": "wqmrgA~uk|dFooB?",
          "maneuver": {"location": [-120.5436, 38.0675], "bearing_before": 0, "bearing_after": 0, "type": "depart", "instruction": "Head north on Main Street"},
          "intersections": [{"location": [-120.5436, 38.0675], "bearings": [0], "entry": [true], "out": 0}]
        },
        {
          "name": "Church Street",
          "mode": "driving",
          "distance": 201.1,
          "duration": 27.3,
          "geometry": "gbqrgA~uk|dF?wnC",
          "maneuver": {"location": [-120.5436, 38.0693], "bearing_before": 0, "bearing_after": 90, "type": "turn", "modifier": "right", "instruction": "Turn right onto Church Street"},
          "intersections": [{"location": [-120.5436, 38.0693], "bearings": [0, 90, 180, 270], "entry": [true, true, false, true], "in": 2, "out": 1}]
        },
        {
          "name": "Church Street",
          "mode": "driving",
          "distance": 0,
          "duration": 0,
          "geometry": {"type": "LineString", "coordinates": [[-120.5413, 38.0693], [-120.5413, 38.0693]]},
          "maneuver": {"location": [-120.5413, 38.0693], "bearing_before": 90, "bearing_after": 0, "type": "arrive", "instruction": "You have arrived"},
          "intersections": [{"location": [-120.5413, 38.0693], "bearings": [270], "entry": [true], "in": 0}]
        }
      ]
    }]
  }]
}`
